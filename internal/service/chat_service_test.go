package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkchat/backend/internal/chat"
	app_errors "sparkchat/backend/internal/errors"
	"sparkchat/backend/internal/model"
	"sparkchat/backend/internal/service"
)

const testUser = "user-1"

// stubProvider counts calls so tests can prove when no network call happened.
type stubProvider struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (p *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.reply, p.err
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubTranscripts records best-effort writes for later inspection.
type stubTranscripts struct {
	mu       sync.Mutex
	saved    []string
	failWith error
}

func (r *stubTranscripts) SaveMessage(ctx context.Context, chatID, role, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.saved = append(r.saved, role+":"+content)
	return nil
}

func (r *stubTranscripts) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

type fixture struct {
	service     *service.ChatService
	store       *chat.Store
	provider    *stubProvider
	transcripts *stubTranscripts
}

func setupChatService(t *testing.T) fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := chat.NewStore(chat.NewRedisStorage(rdb))
	provider := &stubProvider{reply: "generated reply"}
	transcripts := &stubTranscripts{}
	svc := service.NewChatService(store, transcripts, provider)
	return fixture{service: svc, store: store, provider: provider, transcripts: transcripts}
}

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Whitespace-only input leaves everything unchanged", func(t *testing.T) {
		f := setupChatService(t)

		_, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "   \n\t"})
		assert.ErrorIs(t, err, app_errors.ErrValidation)

		chats, err := f.store.LoadAll(ctx, testUser)
		require.NoError(t, err)
		assert.Empty(t, chats)
		assert.Equal(t, 0, f.provider.callCount())
		assert.Equal(t, 0, f.transcripts.savedCount())
	})

	t.Run("Oversized input is rejected", func(t *testing.T) {
		f := setupChatService(t)
		big := make([]byte, 2001)
		for i := range big {
			big[i] = 'a'
		}

		_, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: string(big)})
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Empty chat id starts a new chat", func(t *testing.T) {
		f := setupChatService(t)

		result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "Hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.ChatID)
		assert.Equal(t, "generated reply", result.Reply)

		c, err := f.store.Load(ctx, testUser, result.ChatID)
		require.NoError(t, err)
		require.Len(t, c.Messages, 2)
		assert.Equal(t, model.Message{Role: model.RoleUser, Content: "Hello"}, c.Messages[0])
		assert.Equal(t, model.Message{Role: model.RoleBot, Content: "generated reply"}, c.Messages[1])
		assert.Equal(t, "Hello", c.Title)
	})

	t.Run("Unknown chat id is not found", func(t *testing.T) {
		f := setupChatService(t)

		_, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{ChatID: "missing", Content: "Hello"})
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Trigger phrase answers locally with no API call", func(t *testing.T) {
		f := setupChatService(t)

		result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "Tell me a joke"})
		require.NoError(t, err)
		assert.Contains(t, result.Reply, "improve its *byte*")
		assert.Equal(t, 0, f.provider.callCount())
	})

	t.Run("Trigger match is exact, case included", func(t *testing.T) {
		f := setupChatService(t)

		result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "tell me a joke"})
		require.NoError(t, err)
		assert.Equal(t, "generated reply", result.Reply)
		assert.Equal(t, 1, f.provider.callCount())
	})

	t.Run("API failure yields the apology and keeps the user message", func(t *testing.T) {
		f := setupChatService(t)
		f.provider.err = errors.New("connection refused")

		result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "What is Go?"})
		require.NoError(t, err)
		assert.Contains(t, result.Reply, "I'm having trouble responding right now")

		c, err := f.store.Load(ctx, testUser, result.ChatID)
		require.NoError(t, err)
		require.Len(t, c.Messages, 2)
		assert.Equal(t, "What is Go?", c.Messages[0].Content)
		assert.Equal(t, model.RoleBot, c.Messages[1].Role)
	})

	t.Run("Both messages reach the transcript store", func(t *testing.T) {
		f := setupChatService(t)

		_, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "Hello"})
		require.NoError(t, err)

		// The writes are fire-and-forget goroutines, so wait for them.
		assert.Eventually(t, func() bool {
			return f.transcripts.savedCount() == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Transcript store failure never surfaces", func(t *testing.T) {
		f := setupChatService(t)
		f.transcripts.failWith = errors.New("db down")

		result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "Hello"})
		require.NoError(t, err)
		assert.Equal(t, "generated reply", result.Reply)
	})

	t.Run("Second exchange continues the same chat", func(t *testing.T) {
		f := setupChatService(t)

		first, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "First"})
		require.NoError(t, err)

		second, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{ChatID: first.ChatID, Content: "Second"})
		require.NoError(t, err)
		assert.Equal(t, first.ChatID, second.ChatID)

		c, err := f.store.Load(ctx, testUser, first.ChatID)
		require.NoError(t, err)
		assert.Len(t, c.Messages, 4)
		// Title stays derived from the first message.
		assert.Equal(t, "First", c.Title)
	})
}

func TestChatService_ListChats(t *testing.T) {
	ctx := context.Background()
	f := setupChatService(t)

	result, err := f.service.SendMessage(ctx, testUser, &service.SendMessageRequest{Content: "Hello there"})
	require.NoError(t, err)

	// A freshly created empty chat shows the placeholder preview.
	empty, err := f.service.CreateChat(ctx, testUser)
	require.NoError(t, err)

	summaries, err := f.service.ListChats(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, empty.ID, summaries[0].ID)
	assert.Equal(t, "No messages", summaries[0].Preview)
	assert.Equal(t, result.ChatID, summaries[1].ID)
	assert.Equal(t, "Hello there", summaries[1].Preview)
}

func TestChatService_SaveTranscript(t *testing.T) {
	ctx := context.Background()
	f := setupChatService(t)

	t.Run("Valid write", func(t *testing.T) {
		require.NoError(t, f.service.SaveTranscript(ctx, "chat1", model.RoleUser, "hi"))
		assert.Equal(t, 1, f.transcripts.savedCount())
	})

	t.Run("Bad role rejected", func(t *testing.T) {
		err := f.service.SaveTranscript(ctx, "chat1", "assistant", "hi")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Blank fields rejected", func(t *testing.T) {
		err := f.service.SaveTranscript(ctx, "", model.RoleUser, "hi")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
		err = f.service.SaveTranscript(ctx, "chat1", model.RoleUser, "")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}
