package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage persists a user's whole chat collection as a single serialized
// blob under one fixed key. The collection is always written wholesale;
// there are no partial updates.
type Storage interface {
	// Read returns the stored collection blob, or ErrNoCollection when the
	// user has never persisted anything.
	Read(ctx context.Context, userID string) ([]byte, error)
	Write(ctx context.Context, userID string, data []byte) error
}

// ErrNoCollection is returned by Storage.Read when no blob exists yet.
var ErrNoCollection = errors.New("chat: no stored collection")

type redisStorage struct {
	rdb *redis.Client
}

func NewRedisStorage(rdb *redis.Client) Storage {
	return &redisStorage{rdb: rdb}
}

func (s *redisStorage) key(userID string) string {
	return fmt.Sprintf("chats:%s", userID)
}

func (s *redisStorage) Read(ctx context.Context, userID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCollection
	}
	if err != nil {
		return nil, fmt.Errorf("reading chat collection: %w", err)
	}
	return data, nil
}

func (s *redisStorage) Write(ctx context.Context, userID string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("writing chat collection: %w", err)
	}
	return nil
}
