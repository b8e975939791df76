package model

import "time"

// Message roles. The chat only ever has two speakers.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// User is a credential record. Accounts are created out of band; this
// application only reads them during login.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never serialized to clients.
	CreatedAt    time.Time  `json:"created_at"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

// Message is a single entry in a chat transcript. Messages are append-only:
// once created they are never edited in place.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is one conversation: an ordered list of messages plus metadata.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Preview returns the content of the first message, used by the sidebar list.
func (c *Chat) Preview() string {
	if len(c.Messages) == 0 {
		return "No messages"
	}
	return c.Messages[0].Content
}

// ChatSummary is the list-view projection of a Chat (no message bodies).
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	UpdatedAt time.Time `json:"updatedAt"`
}
