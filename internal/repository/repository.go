package repository

import (
	"context"

	"sparkchat/backend/internal/model"
)

// UserRepository defines the data access contract for credential records.
// Users are created out of band; this application only reads and touches them.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateLastSeen(ctx context.Context, userID string) error
}

// TranscriptRepository is the server-side copy of chat transcripts. Writes are
// best-effort: callers log failures and move on, they never retry or block the
// exchange. Nothing in this application reads the transcript back.
type TranscriptRepository interface {
	SaveMessage(ctx context.Context, chatID, role, content string) error
}
