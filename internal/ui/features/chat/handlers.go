package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/transcript"
	"github.com/leapstack-labs/leapchat/internal/ui/features/chat/components"
	"github.com/leapstack-labs/leapchat/internal/ui/features/chat/pages"
	"github.com/leapstack-labs/leapchat/internal/ui/notifier"
)

// Handlers provides HTTP handlers for the chat feature.
type Handlers struct {
	service      *chat.Service
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *chat.Service, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		service:      service,
		sessionStore: sessionStore,
		notifier:     notify,
		isDev:        isDev,
		logger:       logger,
	}
}

// ChatPage renders the chat page with the transcript server-rendered.
// A full page load clears every entry's mode back to run.
func (h *Handlers) ChatPage(w http.ResponseWriter, r *http.Request) {
	conv, session, err := h.conversationFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	conv.ResetState()

	snap, err := conv.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := pages.ChatData{
		ConversationID:   conv.ID(),
		SidebarCollapsed: sidebarCollapsed(session),
		Views:            transcript.Build(snap),
		Drafts:           snap.Drafts,
	}
	if err := pages.ChatPage("Chat", h.isDev, data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ChatPageUpdates is the long-lived SSE endpoint of the chat page.
// It re-renders the transcript whenever the conversation changes.
// No initial state is sent: ChatPage already rendered it.
func (h *Handlers) ChatPageUpdates(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.conversationFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(conv.ID())
	defer h.notifier.Unsubscribe(conv.ID(), updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.sendTranscript(ctx, sse, conv); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// Ask sends the question to the backend and appends the exchange.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}

	conv, _, err := h.conversationFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	question := strings.TrimSpace(signals.Question)
	if question == "" {
		return
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"question": ""})

	if err := conv.Ask(r.Context(), question); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := h.sendTranscript(r.Context(), sse, conv); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Run executes an entry's SQL and appends the result.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, func(ctx context.Context, conv *chat.Conversation, id string) error {
		_, err := conv.Run(ctx, id)
		return err
	})
}

// Edit switches an entry to edit mode.
func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, func(ctx context.Context, conv *chat.Conversation, id string) error {
		return conv.Edit(ctx, id)
	})
}

// Draft records the editor text of an entry.
func (h *Handlers) Draft(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}

	conv, _, err := h.conversationFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	conv.SetDraft(id, signals.Drafts[components.DraftSignal(id)])
	w.WriteHeader(http.StatusNoContent)
}

// Save leaves edit mode, committing the draft when there is one.
func (h *Handlers) Save(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}

	h.entryAction(w, r, func(ctx context.Context, conv *chat.Conversation, id string) error {
		// keystrokes newer than the last debounced draft post
		if draft := signals.Drafts[components.DraftSignal(id)]; draft != "" {
			conv.SetDraft(id, draft)
		}
		_, err := conv.Save(ctx, id)
		return err
	})
}

// Questions patches the sidebar's candidate question list.
func (h *Handlers) Questions(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	questions, err := h.service.Backend().Questions(r.Context())
	if err != nil {
		h.logger.Error("failed to load questions", "error", err)
		_ = sse.PatchElementTempl(components.QuestionsUnavailable())
		return
	}

	if err := sse.PatchElementTempl(components.QuestionList(questions)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// ToggleSidebar flips the sidebar state kept in the session.
func (h *Handlers) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	collapsed := !sidebarCollapsed(session)
	session.Values[sidebarKey] = collapsed
	if err := session.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(components.Sidebar(collapsed)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Reset starts a new conversation and reloads the page.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	if old, ok := session.Values[conversationKey].(string); ok {
		h.service.Forget(old)
	}
	session.Values[conversationKey] = chat.NewID()
	if err := session.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)
	_ = sse.ExecuteScript("window.location.reload()")
}

type entryActionFunc func(ctx context.Context, conv *chat.Conversation, id string) error

// entryAction runs an action on the entry named in the URL and answers with
// the re-rendered transcript.
func (h *Handlers) entryAction(w http.ResponseWriter, r *http.Request, action entryActionFunc) {
	conv, _, err := h.conversationFor(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)
	id := chi.URLParam(r, "id")

	if err := action(r.Context(), conv, id); err != nil {
		if errors.Is(err, chat.ErrEntryNotFound) || errors.Is(err, chat.ErrNotSQL) {
			h.logger.Warn("rejected entry action", "entry", id, "error", err)
		}
		_ = sse.ConsoleError(err)
		return
	}

	if err := h.sendTranscript(r.Context(), sse, conv); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// sendTranscript patches the transcript with the conversation's current state.
func (h *Handlers) sendTranscript(ctx context.Context, sse *datastar.ServerSentEventGenerator, conv *chat.Conversation) error {
	snap, err := conv.Snapshot(ctx)
	if err != nil {
		return err
	}
	return sse.PatchElementTempl(components.Transcript(transcript.Build(snap), snap.Drafts))
}

// conversationFor returns the conversation bound to the browser session,
// starting one and saving the cookie if needed. It must run before any SSE
// output since it may write headers.
func (h *Handlers) conversationFor(w http.ResponseWriter, r *http.Request) (*chat.Conversation, *sessions.Session, error) {
	session := h.session(r)

	id, _ := session.Values[conversationKey].(string)
	conv := h.service.Conversation(id)
	if id != conv.ID() {
		session.Values[conversationKey] = conv.ID()
		if err := session.Save(r, w); err != nil {
			return nil, nil, err
		}
	}
	return conv, session, nil
}

// session returns the browser session; an unreadable cookie yields a fresh one.
func (h *Handlers) session(r *http.Request) *sessions.Session {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("discarding unreadable session", "error", err)
	}
	if session == nil {
		session = sessions.NewSession(h.sessionStore, sessionName)
	}
	return session
}

func sidebarCollapsed(session *sessions.Session) bool {
	collapsed, _ := session.Values[sidebarKey].(bool)
	return collapsed
}
