package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sparkchat/backend/internal/chat"
	app_errors "sparkchat/backend/internal/errors"
	"sparkchat/backend/internal/llm"
	"sparkchat/backend/internal/model"
	"sparkchat/backend/internal/repository"
)

// apologyReply replaces any remote-API failure. Transport errors, bad status
// codes and malformed responses all degrade to this one string.
const apologyReply = "I'm sorry, I'm having trouble responding right now. Please try again later."

// maxMessageLength mirrors the input limit enforced in the chat UI.
const maxMessageLength = 2000

// cannedReplies are answered locally, without any call to the remote API.
// The match is exact: "tell me a joke" in lowercase goes to the API.
var cannedReplies = map[string]string{
	"Tell me a joke":          "Why did the computer go to school? Because it wanted to improve its *byte*! Hope that made you smile!",
	"Explain quantum physics": "Quantum physics studies the behavior of particles at very small scales, like atoms and subatomic particles. It’s based on principles like superposition (particles exist in multiple states at once), entanglement (particles can be instantly connected despite vast distances), and wave-particle duality (particles exhibit both wave and particle properties). It’s key to understanding phenomena like quantum computing and atomic behavior. Want to dive deeper into a specific aspect?",
	"Write a creative story":  "Once upon a time in a forest of whispering trees, a young fox named Ember discovered a glowing crystal that granted her the ability to speak with the wind. The wind told her of a hidden realm where dreams shaped reality, but only the brave could enter. Ember embarked on a journey, facing trials of courage and wit, and ultimately learned that the true magic was in believing in herself. Would you like to continue the story?",
}

// transcriptWriteTimeout bounds each detached transcript write.
const transcriptWriteTimeout = 5 * time.Second

type ChatService struct {
	store       *chat.Store
	transcripts repository.TranscriptRepository
	llm         llm.Provider
}

// SendMessageRequest is one user-submitted message. An empty ChatID starts a
// new chat.
type SendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content" validate:"required,max=2000"`
}

// SendMessageResult carries the reply back to the client together with the
// chat it now belongs to.
type SendMessageResult struct {
	ChatID string `json:"chat_id"`
	Reply  string `json:"reply"`
}

func NewChatService(store *chat.Store, transcripts repository.TranscriptRepository, provider llm.Provider) *ChatService {
	return &ChatService{store: store, transcripts: transcripts, llm: provider}
}

// SendMessage runs one full exchange: append the user message, resolve the
// reply (canned, remote, or the apology), append the reply, and persist. The
// two transcript writes are fire-and-forget; their failures are logged and
// never reach the user.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req *SendMessageRequest) (*SendMessageResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", app_errors.ErrValidation)
	}
	if len(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", app_errors.ErrValidation, maxMessageLength)
	}

	chatID := req.ChatID
	if chatID == "" {
		created, err := s.store.Create(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("could not create chat: %w", err)
		}
		chatID = created.ID
	}

	if err := s.store.Append(ctx, userID, chatID, model.Message{Role: model.RoleUser, Content: content}); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown chat %q", app_errors.ErrNotFound, chatID)
		}
		return nil, err
	}
	s.persistTranscript(chatID, model.RoleUser, content)

	reply := s.resolveReply(ctx, content)

	if err := s.store.Append(ctx, userID, chatID, model.Message{Role: model.RoleBot, Content: reply}); err != nil {
		return nil, err
	}
	s.persistTranscript(chatID, model.RoleBot, reply)

	if err := s.store.Persist(ctx, userID, chatID); err != nil {
		// The exchange already happened; a failed collection write only costs
		// durability, so log it and still return the reply.
		slog.Error("Failed to persist chat collection", "chat_id", chatID, "error", err)
	}

	return &SendMessageResult{ChatID: chatID, Reply: reply}, nil
}

// CreateChat starts a fresh, empty chat.
func (s *ChatService) CreateChat(ctx context.Context, userID string) (*model.Chat, error) {
	return s.store.Create(ctx, userID)
}

// ListChats returns summaries of the user's collection, newest-first.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.ChatSummary, error) {
	chats, err := s.store.LoadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.ChatSummary, len(chats))
	for i, c := range chats {
		summaries[i] = model.ChatSummary{
			ID:        c.ID,
			Title:     c.Title,
			Preview:   c.Preview(),
			UpdatedAt: c.UpdatedAt,
		}
	}
	return summaries, nil
}

// GetChat returns one chat with its full transcript.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	c, err := s.store.Load(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown chat %q", app_errors.ErrNotFound, chatID)
		}
		return nil, err
	}
	return c, nil
}

// SaveTranscript is the synchronous entry point behind the message-save
// endpoint. It validates the role and writes one transcript row.
func (s *ChatService) SaveTranscript(ctx context.Context, chatID, role, content string) error {
	if chatID == "" || content == "" {
		return fmt.Errorf("%w: chat_id and content are required", app_errors.ErrValidation)
	}
	if role != model.RoleUser && role != model.RoleBot {
		return fmt.Errorf("%w: role must be %q or %q", app_errors.ErrValidation, model.RoleUser, model.RoleBot)
	}
	return s.transcripts.SaveMessage(ctx, chatID, role, content)
}

// resolveReply answers from the canned set when the message matches a trigger
// phrase exactly, and otherwise forwards it as a single-turn request to the
// remote API. Failures become the fixed apology.
func (s *ChatService) resolveReply(ctx context.Context, content string) string {
	if reply, ok := cannedReplies[content]; ok {
		return reply
	}
	reply, err := s.llm.Generate(ctx, content)
	if err != nil {
		slog.Warn("Remote generative API call failed", "error", err)
		return apologyReply
	}
	return reply
}

// persistTranscript writes one message to the server-side transcript store in
// a detached goroutine. The write gets its own context so it survives the
// request ending, and its failure is captured by the log sink only.
func (s *ChatService) persistTranscript(chatID, role, content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), transcriptWriteTimeout)
		defer cancel()
		if err := s.transcripts.SaveMessage(ctx, chatID, role, content); err != nil {
			slog.Warn("Failed to save message to transcript store", "chat_id", chatID, "role", role, "error", err)
		}
	}()
}
