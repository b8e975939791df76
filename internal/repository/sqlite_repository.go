package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sparkchat/backend/internal/model"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := "SELECT id, username, password_hash, created_at, last_seen_at FROM users WHERE username = ?"
	row := r.db.QueryRowContext(ctx, query, username)

	var user model.User
	var lastSeen sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &lastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user by username: %w", err)
	}
	if lastSeen.Valid {
		user.LastSeenAt = &lastSeen.Time
	}
	return &user, nil
}

func (r *userRepository) UpdateLastSeen(ctx context.Context, userID string) error {
	query := "UPDATE users SET last_seen_at = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	return err
}

type transcriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

// SaveMessage inserts one transcript row. Each call is an independent write:
// a user message and the bot reply that follows it are separate inserts with
// no transaction linking them.
func (r *transcriptRepository) SaveMessage(ctx context.Context, chatID, role, content string) error {
	query := "INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), chatID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("could not insert message: %w", err)
	}
	return nil
}
