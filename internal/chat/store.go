package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparkchat/backend/internal/model"
)

// ErrNotFound is returned when a chat id is not present in a user's collection.
var ErrNotFound = errors.New("chat: session not found")

const (
	// defaultTitle is the placeholder title of a chat with no messages yet.
	defaultTitle = "New Chat"
	// titleLength is how many characters of the first message become the title.
	titleLength = 20
)

// Store owns each user's chat collection: an ordered, newest-first list of
// chats held in memory and mirrored to durable storage on every persist.
// All mutation goes through the methods below; a single mutex serializes
// concurrent requests against the same collection.
type Store struct {
	storage Storage

	mu          sync.Mutex
	collections map[string][]*model.Chat
}

func NewStore(storage Storage) *Store {
	return &Store{
		storage:     storage,
		collections: make(map[string][]*model.Chat),
	}
}

// Create starts a fresh chat with a random id and the placeholder title and
// prepends it to the user's collection. The new chat is in-memory only: it is
// not written durably until it has at least one message.
func (s *Store) Create(ctx context.Context, userID string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &model.Chat{
		ID:        uuid.NewString(),
		Title:     defaultTitle,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.collections[userID] = append([]*model.Chat{c}, collection...)

	return cloneChat(c), nil
}

// Load returns the chat with the given id, or ErrNotFound.
func (s *Store) Load(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.find(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return cloneChat(c), nil
}

// LoadAll returns the user's whole collection, newest-first.
func (s *Store) LoadAll(ctx context.Context, userID string) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.collection(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Chat, len(collection))
	for i, c := range collection {
		out[i] = cloneChat(c)
	}
	return out, nil
}

// Append adds a message to the end of a chat's transcript. Messages are
// append-only; nothing ever edits one in place.
func (s *Store) Append(ctx context.Context, userID, chatID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.find(ctx, userID, chatID)
	if err != nil {
		return err
	}
	c.Messages = append(c.Messages, msg)
	return nil
}

// Persist snapshots a chat into the durable collection. A chat that does not
// exist or has no messages is skipped silently: empty chats are never
// persisted. The title is re-derived from the first message, updatedAt is set
// to now and createdAt is preserved, then the whole collection is serialized
// and written wholesale.
func (s *Store) Persist(ctx context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.find(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if len(c.Messages) == 0 {
		return nil
	}

	c.Title = deriveTitle(c.Messages)
	c.UpdatedAt = time.Now().UTC()

	return s.flush(ctx, userID)
}

// collection returns the user's in-memory collection, loading it from storage
// on first access. Missing storage yields an empty collection; a corrupt blob
// is logged and reset to empty rather than failing the request.
// Callers must hold s.mu.
func (s *Store) collection(ctx context.Context, userID string) ([]*model.Chat, error) {
	if collection, ok := s.collections[userID]; ok {
		return collection, nil
	}

	data, err := s.storage.Read(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoCollection) {
			s.collections[userID] = []*model.Chat{}
			return s.collections[userID], nil
		}
		return nil, err
	}

	var collection []*model.Chat
	if err := json.Unmarshal(data, &collection); err != nil {
		slog.Warn("Stored chat collection is corrupt, resetting to empty.", "user_id", userID, "error", err)
		collection = []*model.Chat{}
	}
	s.collections[userID] = collection
	return collection, nil
}

// find locates a chat by id in the user's collection. Callers must hold s.mu.
func (s *Store) find(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	collection, err := s.collection(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range collection {
		if c.ID == chatID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// flush serializes every chat that has messages and overwrites the stored
// blob. Empty chats stay in memory only. Callers must hold s.mu.
func (s *Store) flush(ctx context.Context, userID string) error {
	collection := s.collections[userID]
	durable := make([]*model.Chat, 0, len(collection))
	for _, c := range collection {
		if len(c.Messages) > 0 {
			durable = append(durable, c)
		}
	}

	data, err := json.Marshal(durable)
	if err != nil {
		return fmt.Errorf("marshaling chat collection: %w", err)
	}
	return s.storage.Write(ctx, userID, data)
}

// deriveTitle takes the leading characters of the first message as the title.
func deriveTitle(messages []model.Message) string {
	if len(messages) == 0 || messages[0].Content == "" {
		return defaultTitle
	}
	runes := []rune(messages[0].Content)
	if len(runes) <= titleLength {
		return messages[0].Content
	}
	return string(runes[:titleLength])
}

func cloneChat(c *model.Chat) *model.Chat {
	out := *c
	out.Messages = make([]model.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
