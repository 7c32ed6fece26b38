package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapchat/internal/gateway"
)

// Errors returned by conversation actions.
var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrNotSQL        = errors.New("entry does not hold SQL")
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// Store owns the ordered entries of every conversation.
type Store interface {
	Entries(ctx context.Context, conversationID string) ([]Entry, error)
	Append(ctx context.Context, conversationID string, entry Entry) error
	Replace(ctx context.Context, conversationID string, entries []Entry) error
}

// Backend is the remote text-to-SQL service.
type Backend interface {
	Questions(ctx context.Context) ([]string, error)
	GenerateSQL(ctx context.Context, question string) (gateway.SQLResult, error)
	RunSQL(ctx context.Context, sql string) (gateway.RunResult, error)
}

// Snapshot is a consistent view of a conversation for rendering.
type Snapshot struct {
	ConversationID string
	Entries        []Entry
	Modes          map[string]Mode
	Drafts         map[string]string
}

// Mode returns the mode of an entry in the snapshot.
func (s Snapshot) Mode(id string) Mode {
	if m, ok := s.Modes[id]; ok {
		return m
	}
	return ModeRun
}

// Conversation is one chat transcript plus its UI state.
// All mutations of the mode state are serialised by mu; backend calls run
// without holding it, so concurrent runs append in arrival order.
type Conversation struct {
	id      string
	store   Store
	backend Backend
	logger  *slog.Logger
	changed func()

	mu    sync.Mutex
	state *State
}

func newConversation(id string, store Store, backend Backend, logger *slog.Logger, changed func()) *Conversation {
	if changed == nil {
		changed = func() {}
	}
	return &Conversation{
		id:      id,
		store:   store,
		backend: backend,
		logger:  logger.With("conversation", id),
		changed: changed,
		state:   NewState(),
	}
}

// ID returns the conversation ID.
func (c *Conversation) ID() string {
	return c.id
}

// Snapshot loads the entries and copies the UI state.
func (c *Conversation) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Entries(ctx, c.id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load entries: %w", err)
	}

	drafts := make(map[string]string, len(c.state.drafts))
	for k, v := range c.state.drafts {
		drafts[k] = v
	}

	return Snapshot{
		ConversationID: c.id,
		Entries:        entries,
		Modes:          c.state.Modes(),
		Drafts:         drafts,
	}, nil
}

// ResetState forgets modes and drafts, as a full page reload does.
func (c *Conversation) ResetState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Reset()
}

// Mode returns the current mode of an entry.
func (c *Conversation) Mode(id string) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode(id)
}

// Ask appends the user's question, asks the backend for SQL and appends the
// answer. A transport failure is logged and swallowed: only the question
// stays in the transcript. A backend-reported error becomes an error entry.
func (c *Conversation) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	if err := c.store.Append(ctx, c.id, NewUserEntry(question)); err != nil {
		return fmt.Errorf("append question: %w", err)
	}
	c.changed()

	res, err := c.backend.GenerateSQL(ctx, question)
	if err != nil {
		c.logger.Error("generate sql failed", "question", question, "error", err)
		return nil
	}

	entry := NewAIEntry(KindSQL, res.SQL)
	if res.Failed {
		entry = NewAIEntry(KindError, res.Error)
	}
	if err := c.store.Append(ctx, c.id, entry); err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	c.changed()
	return nil
}

// Run executes the SQL held by an entry and appends the outcome as a new
// entry. It returns the appended entry, or nil when the backend could not be
// reached; that failure is logged and otherwise leaves the transcript alone.
func (c *Conversation) Run(ctx context.Context, entryID string) (*Entry, error) {
	c.mu.Lock()
	src, err := c.find(ctx, entryID)
	if err == nil {
		c.state.Run(entryID)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if src.Kind != KindSQL {
		return nil, fmt.Errorf("run %s: %w", entryID, ErrNotSQL)
	}

	res, err := c.backend.RunSQL(ctx, src.AI)
	if err != nil {
		c.logger.Error("run sql failed", "entry", entryID, "error", err)
		return nil, nil
	}

	entry := NewAIEntry(KindTable, res.DF)
	if res.Failed {
		entry = NewAIEntry(KindError, res.Error)
	}
	if err := c.store.Append(ctx, c.id, entry); err != nil {
		return nil, fmt.Errorf("append result: %w", err)
	}
	c.changed()
	return &entry, nil
}

// Edit switches an entry to edit mode.
func (c *Conversation) Edit(ctx context.Context, entryID string) error {
	c.mu.Lock()
	_, err := c.find(ctx, entryID)
	if err == nil {
		c.state.Edit(entryID)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.changed()
	return nil
}

// SetDraft records keystrokes for an entry being edited.
func (c *Conversation) SetDraft(entryID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetDraft(entryID, text)
}

// Save leaves edit mode. A non-empty draft replaces the entry's AI text;
// the store receives the whole sequence, not a patch. It reports whether the
// store was written.
func (c *Conversation) Save(ctx context.Context, entryID string) (bool, error) {
	saved, err := c.save(ctx, entryID)
	if err != nil {
		return false, err
	}
	c.changed()
	return saved, nil
}

func (c *Conversation) save(ctx context.Context, entryID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Entries(ctx, c.id)
	if err != nil {
		return false, fmt.Errorf("load entries: %w", err)
	}
	idx := indexOf(entries, entryID)
	if idx < 0 {
		return false, fmt.Errorf("save %s: %w", entryID, ErrEntryNotFound)
	}

	draft := c.state.Save(entryID)
	if draft == "" {
		return false, nil
	}

	updated := make([]Entry, len(entries))
	copy(updated, entries)
	updated[idx].AI = draft

	if err := c.store.Replace(ctx, c.id, updated); err != nil {
		return false, fmt.Errorf("replace entries: %w", err)
	}
	return true, nil
}

// Questions returns candidate questions from the backend.
func (c *Conversation) Questions(ctx context.Context) ([]string, error) {
	return c.backend.Questions(ctx)
}

func (c *Conversation) find(ctx context.Context, entryID string) (Entry, error) {
	entries, err := c.store.Entries(ctx, c.id)
	if err != nil {
		return Entry{}, fmt.Errorf("load entries: %w", err)
	}
	idx := indexOf(entries, entryID)
	if idx < 0 {
		return Entry{}, fmt.Errorf("%s: %w", entryID, ErrEntryNotFound)
	}
	return entries[idx], nil
}

func indexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
