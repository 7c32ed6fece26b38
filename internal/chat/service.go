package chat

import (
	"log/slog"
	"sync"
)

// Service hands out conversations sharing one store and backend.
type Service struct {
	store   Store
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	convs    map[string]*Conversation
	listener Listener
}

// Listener is told the ID of a conversation whose transcript or entry modes
// changed.
type Listener func(conversationID string)

// NewService creates a Service. A nil logger discards output.
func NewService(store Store, backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		backend: backend,
		logger:  logger,
		convs:   make(map[string]*Conversation),
	}
}

// Conversation returns the conversation with the given ID, creating its UI
// state on first use. An empty ID starts a new conversation.
func (s *Service) Conversation(id string) *Conversation {
	if id == "" {
		id = NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[id]; ok {
		return c
	}
	c := newConversation(id, s.store, s.backend, s.logger, func() { s.notify(id) })
	s.convs[id] = c
	return c
}

// Forget drops the UI state of a conversation. Its entries stay in the store.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
}

// OnChange registers the listener told about conversation changes.
func (s *Service) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

func (s *Service) notify(id string) {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// Backend returns the backend used by all conversations.
func (s *Service) Backend() Backend {
	return s.backend
}
