package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	app_errors "sparkchat/backend/internal/errors"
	"sparkchat/backend/internal/model"
	"sparkchat/backend/internal/repository"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// Session is the server-side record a valid token resolves to. Its presence
// is what makes a request authenticated.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Service implements the credential check and the session lifecycle.
// Passwords are verified against stored bcrypt hashes; tokens live in Redis
// with a TTL so expiry needs no background sweeper.
type Service struct {
	users      repository.UserRepository
	rdb        *redis.Client
	sessionTTL time.Duration
}

func NewService(users repository.UserRepository, rdb *redis.Client, sessionTTL time.Duration) *Service {
	return &Service{users: users, rdb: rdb, sessionTTL: sessionTTL}
}

// Login verifies a username/password pair and, on success, creates a session
// and returns its token. Every failure mode a client can distinguish collapses
// into the same generic ErrUnauthorized so the response never reveals whether
// the username or the password was wrong.
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: please fill in both username and password", app_errors.ErrValidation)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid username or password", app_errors.ErrUnauthorized)
		}
		// Credential store unreachable: log the detail, hand back a generic error.
		slog.Error("Credential lookup failed", "error", err)
		return "", nil, fmt.Errorf("%w: could not check credentials", app_errors.ErrInternal)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid username or password", app_errors.ErrUnauthorized)
	}

	token, err := s.createSession(ctx, user)
	if err != nil {
		slog.Error("Failed to create session", "user_id", user.ID, "error", err)
		return "", nil, fmt.Errorf("%w: could not create session", app_errors.ErrInternal)
	}

	// Best-effort: a failed timestamp update must not fail the login.
	if err := s.users.UpdateLastSeen(ctx, user.ID); err != nil {
		slog.Warn("Failed to update last seen", "user_id", user.ID, "error", err)
	}

	slog.Info("User logged in", "user_id", user.ID, "username", user.Username)
	return token, user, nil
}

// ValidateSession resolves a token to its session, or ErrUnauthorized when
// the token is unknown or expired.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session expired or invalid", app_errors.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading session: %v", app_errors.ErrInternal, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling session: %v", app_errors.ErrInternal, err)
	}
	return &session, nil
}

// DestroySession deletes a token, logging the user out. Destroying a token
// that no longer exists is not an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("%w: deleting session: %v", app_errors.ErrInternal, err)
	}
	return nil
}

// SessionTTL exposes the configured lifetime, used for the cookie max-age.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) createSession(ctx context.Context, user *model.User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	session := Session{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, data, s.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
