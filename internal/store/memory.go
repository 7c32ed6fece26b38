package store

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/leapchat/internal/chat"
)

// Memory keeps transcripts in process. The least recently used conversation
// is evicted once more than the configured number are held.
type Memory struct {
	mu    sync.Mutex
	convs *lru.Cache[string, []chat.Entry]
}

// NewMemory creates a memory store holding up to size conversations.
func NewMemory(size int) (*Memory, error) {
	cache, err := lru.New[string, []chat.Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}
	return &Memory{convs: cache}, nil
}

// Entries returns a copy of a conversation's entries.
func (m *Memory) Entries(_ context.Context, conversationID string) ([]chat.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, _ := m.convs.Get(conversationID)
	out := make([]chat.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Append adds an entry at the end of a conversation.
func (m *Memory) Append(_ context.Context, conversationID string, entry chat.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, _ := m.convs.Get(conversationID)
	next := make([]chat.Entry, len(entries), len(entries)+1)
	copy(next, entries)
	m.convs.Add(conversationID, append(next, entry))
	return nil
}

// Replace swaps a conversation's entries for a new sequence.
func (m *Memory) Replace(_ context.Context, conversationID string, entries []chat.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]chat.Entry, len(entries))
	copy(next, entries)
	m.convs.Add(conversationID, next)
	return nil
}

// Len returns the number of conversations held.
func (m *Memory) Len() int {
	return m.convs.Len()
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
