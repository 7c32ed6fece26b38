package tui

import "github.com/leapstack-labs/leapchat/internal/transcript"

// transcriptMsg carries a fresh rendering of the conversation, optionally
// after an action finished.
type transcriptMsg struct {
	views  []transcript.View
	drafts map[string]string
	status string
	err    error
	action bool // the message ends a pending action
}

// questionsMsg carries the candidate questions.
type questionsMsg struct {
	questions []string
	err       error
}
