package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryConversation struct {
	messages  []Message
	title     string
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is the volatile Store backend. All state is process-local and
// lost on restart; it exists for tests and for running without a database.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string]*memoryConversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*memoryConversation)}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return nil, nil
	}
	out := make([]Message, len(conv.messages))
	copy(out, conv.messages)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, conversationID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv, ok := s.convs[conversationID]
	if !ok {
		conv = &memoryConversation{createdAt: now}
		s.convs[conversationID] = conv
	}
	conv.messages = append(conv.messages, Message{Role: role, Content: content})
	conv.updatedAt = now
	return nil
}

func (s *MemoryStore) Truncate(ctx context.Context, conversationID string, maxHistory int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok || len(conv.messages) <= maxHistory {
		return nil
	}
	kept := conv.messages[len(conv.messages)-maxHistory:]
	conv.messages = append([]Message(nil), kept...)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.convs))
	for id, conv := range s.convs {
		count := 0
		for _, m := range conv.messages {
			if m.Role != RoleSystem {
				count++
			}
		}
		out = append(out, Summary{
			ConversationID: id,
			Title:          conv.title,
			MessageCount:   count,
			CreatedAt:      conv.createdAt,
			UpdatedAt:      conv.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, conversationID string) (*Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	d := Detail{
		ConversationID: conversationID,
		Title:          conv.title,
		CreatedAt:      conv.createdAt,
		UpdatedAt:      conv.updatedAt,
	}
	for _, m := range conv.messages {
		if m.Role != RoleSystem {
			d.Messages = append(d.Messages, m)
		}
	}
	return &d, nil
}

func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.convs, conversationID)
	return nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.title = title
	return nil
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }
