// Package history persists ordered conversation messages keyed by
// conversation ID, with a durable SQLite backend and a volatile in-memory
// backend behind one interface. Which backend is active is a startup decision.
package history

import (
	"context"
	"errors"
	"time"
)

// Message roles. System messages may exist in the backing store but are
// excluded from consumer-facing views and from history sent to generation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrNotFound is returned when a referenced conversation has no stored
// messages or metadata. Load is exempt: an unknown ID loads as empty history.
var ErrNotFound = errors.New("conversation not found")

// Message is one turn of a conversation as the store exposes it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Summary describes a conversation for listing. MessageCount excludes
// system-role messages.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Detail is a conversation with its full visible history.
type Detail struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	Messages       []Message `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is the capability set shared by both memory backends. Every operation
// is atomic with respect to concurrent callers and scoped to a single
// conversation ID; operations on one ID never observe another's messages.
type Store interface {
	// Load returns all messages of a conversation in append order. An
	// unknown ID yields an empty slice, not an error.
	Load(ctx context.Context, conversationID string) ([]Message, error)

	// Append adds one message at the end of the conversation, creating the
	// conversation on first use. The write is durable before Append returns.
	Append(ctx context.Context, conversationID, role, content string) error

	// Truncate drops the oldest messages so that at most maxHistory remain,
	// preserving the relative order of the kept messages. A conversation at
	// or below the bound is left untouched.
	Truncate(ctx context.Context, conversationID string, maxHistory int) error

	// List returns summaries of all conversations, most recently updated
	// first.
	List(ctx context.Context) ([]Summary, error)

	// Get returns a conversation with its non-system messages, or
	// ErrNotFound for an unknown ID.
	Get(ctx context.Context, conversationID string) (*Detail, error)

	// Delete removes a conversation's messages and metadata. Deleting an
	// unknown ID is a no-op.
	Delete(ctx context.Context, conversationID string) error

	// SetTitle updates a conversation's display title, or returns
	// ErrNotFound for an unknown ID.
	SetTitle(ctx context.Context, conversationID, title string) error

	// Kind names the backend ("sqlite" or "memory").
	Kind() string

	Close() error
}
