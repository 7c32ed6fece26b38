package chat

// Mode is the per-entry UI mode.
type Mode string

// Modes.
const (
	ModeRun  Mode = "run"
	ModeEdit Mode = "edit"
)

// State tracks the mode and pending edit draft of every entry, keyed by
// entry ID. It is not safe for concurrent use; Conversation guards it.
type State struct {
	modes  map[string]Mode
	drafts map[string]string
}

// NewState returns an empty state where every entry is in run mode.
func NewState() *State {
	return &State{
		modes:  make(map[string]Mode),
		drafts: make(map[string]string),
	}
}

// Mode returns the mode of an entry, run when never set.
func (s *State) Mode(id string) Mode {
	if m, ok := s.modes[id]; ok {
		return m
	}
	return ModeRun
}

// Edit switches an entry to edit mode. Re-entering edit is a no-op.
func (s *State) Edit(id string) {
	s.modes[id] = ModeEdit
}

// Run puts an entry back in run mode without touching its draft.
func (s *State) Run(id string) {
	s.modes[id] = ModeRun
}

// SetDraft records the pending edit text of one entry.
func (s *State) SetDraft(id, text string) {
	s.drafts[id] = text
}

// Draft returns the pending edit text of one entry.
func (s *State) Draft(id string) string {
	return s.drafts[id]
}

// Save switches the entry back to run mode and hands out its draft.
// The draft is consumed so a later save without keystrokes is a no-op.
func (s *State) Save(id string) string {
	s.modes[id] = ModeRun
	draft := s.drafts[id]
	delete(s.drafts, id)
	return draft
}

// Modes returns a copy of the mode map.
func (s *State) Modes() map[string]Mode {
	out := make(map[string]Mode, len(s.modes))
	for k, v := range s.modes {
		out[k] = v
	}
	return out
}

// Reset forgets all modes and drafts.
func (s *State) Reset() {
	s.modes = make(map[string]Mode)
	s.drafts = make(map[string]string)
}
