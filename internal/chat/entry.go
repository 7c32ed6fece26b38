// Package chat holds the conversation core: transcript entries, the per-entry
// run/edit mode state and the actions (ask, run, edit, save) that mutate them.
//
// Front ends (web UI, terminal UI, REPL) never touch the store directly; they
// call a Conversation and render its Snapshot.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags an entry and decides how it is rendered.
type Kind string

// Entry kinds.
const (
	KindText  Kind = "text"
	KindSQL   Kind = "sql"
	KindTable Kind = "df"
	KindError Kind = "error"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindSQL, KindTable, KindError:
		return true
	}
	return false
}

// Entry is one turn of the transcript.
// User and AI are alternatives; when both are set User wins at render time.
type Entry struct {
	ID        string    `json:"id"`
	User      string    `json:"user,omitempty"`
	AI        string    `json:"ai,omitempty"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserEntry creates a plain-text entry typed by the user.
func NewUserEntry(text string) Entry {
	return Entry{
		ID:        NewID(),
		User:      text,
		Kind:      KindText,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAIEntry creates an assistant entry of the given kind.
func NewAIEntry(kind Kind, text string) Entry {
	return Entry{
		ID:        NewID(),
		AI:        text,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// FromUser reports whether the entry was typed by the user.
func (e Entry) FromUser() bool {
	return e.User != ""
}

// Text returns the displayable text, preferring the user field.
func (e Entry) Text() string {
	if e.User != "" {
		return e.User
	}
	return e.AI
}
