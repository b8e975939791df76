package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkchat/backend/internal/repository"
)

func TestUserRepository_FindByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_seen_at"}).
			AddRow("u1", "alice", "$2a$10$hash", now, nil)
		mock.ExpectQuery("SELECT id, username, password_hash").
			WithArgs("alice").
			WillReturnRows(rows)

		repo := repository.NewUserRepository(db)
		user, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "$2a$10$hash", user.PasswordHash)
		assert.Nil(t, user.LastSeenAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown user maps to ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT id, username, password_hash").
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_seen_at"}))

		repo := repository.NewUserRepository(db)
		_, err = repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTranscriptRepository_SaveMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO messages").
			WithArgs(sqlmock.AnyArg(), "chat1", "user", "hello", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		repo := repository.NewTranscriptRepository(db)
		err = repo.SaveMessage(ctx, "chat1", "user", "hello")
		assert.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert failure is returned to the caller", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO messages").
			WillReturnError(assert.AnError)

		repo := repository.NewTranscriptRepository(db)
		err = repo.SaveMessage(ctx, "chat1", "bot", "hi")
		assert.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
