package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/testutil"
	"github.com/leapstack-labs/leapchat/internal/ui/features"
	"github.com/leapstack-labs/leapchat/internal/ui/features/chat/components"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

// browser replays the session cookie across requests like a real tab.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func setupTestBrowser(t *testing.T) (*browser, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	router := chi.NewRouter()
	require.NoError(t, SetupRoutes(router, fixture.Service, fixture.SessionStore, fixture.Notifier, false, testutil.NewTestLogger(t)))

	return &browser{t: t, handler: router}, fixture
}

func (b *browser) do(method, path, body string) *httptest.ResponseRecorder {
	b.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		b.cookies = cookies
	}
	return rec
}

var conversationAttr = regexp.MustCompile(`data-conversation="([^"]+)"`)

// open loads the chat page and returns the conversation ID it is bound to.
func (b *browser) open() string {
	b.t.Helper()
	rec := b.do(http.MethodGet, "/", "")
	require.Equal(b.t, http.StatusOK, rec.Code)

	m := conversationAttr.FindStringSubmatch(rec.Body.String())
	require.Len(b.t, m, 2, "page should carry the conversation ID")
	return m[1]
}

func seedSQL(t *testing.T, f *features.TestFixture, conversationID, sql string) chat.Entry {
	t.Helper()
	q := chat.NewUserEntry("question")
	e := chat.NewAIEntry(chat.KindSQL, sql)
	f.Seed(t, conversationID, q, e)
	return e
}

// =============================================================================
// ChatPage Tests - Full HTML page responses with server-rendered content
// =============================================================================

func TestChatPage(t *testing.T) {
	b, _ := setupTestBrowser(t)

	rec := b.do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Chat - LeapChat</title>",
		"@get('/updates')",
		components.BrandName,
		`id="transcript"`,
		`id="composer"`,
		"/static/app.css",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, "/reload", "reload hook is dev only")
	assert.NotEmpty(t, rec.Result().Cookies(), "session cookie should be set")
}

func TestChatPage_KeepsConversationAcrossLoads(t *testing.T) {
	b, _ := setupTestBrowser(t)

	first := b.open()
	second := b.open()

	assert.Equal(t, first, second)
}

func TestChatPage_RendersExistingTranscript(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	e := seedSQL(t, f, id, "SELECT name FROM cities")

	rec := b.do(http.MethodGet, "/", "")

	body := rec.Body.String()
	assert.Contains(t, body, "question")
	assert.Contains(t, body, `data-kind="code"`)
	assert.Contains(t, body, "/api/chat/entries/"+e.ID+"/run")
	assert.Contains(t, body, "/api/chat/entries/"+e.ID+"/edit")
}

func TestChatPage_ReloadClearsModes(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	e := seedSQL(t, f, id, "SELECT 1")

	b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/edit", "")
	require.Equal(t, chat.ModeEdit, f.Service.Conversation(id).Mode(e.ID))

	b.open()

	assert.Equal(t, chat.ModeRun, f.Service.Conversation(id).Mode(e.ID))
}

// =============================================================================
// Ask Tests
// =============================================================================

func TestAsk(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	f.Backend.Set(func(fb *features.FakeBackend) { fb.SQL = "SELECT COUNT(*) FROM users" })

	rec := b.do(http.MethodPost, "/api/chat/ask", `{"question":"how many users?"}`)

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-signals", "question input should be cleared")
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "how many users?")

	entries := f.Entries(t, id)
	require.Len(t, entries, 2)
	assert.Equal(t, chat.KindText, entries[0].Kind)
	assert.Equal(t, "how many users?", entries[0].User)
	assert.Equal(t, chat.KindSQL, entries[1].Kind)
	assert.Equal(t, "SELECT COUNT(*) FROM users", entries[1].AI)
}

func TestAsk_BackendError(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	f.Backend.Set(func(fb *features.FakeBackend) { fb.SQLError = "cannot answer that" })

	rec := b.do(http.MethodPost, "/api/chat/ask", `{"question":"why?"}`)

	assert.Contains(t, rec.Body.String(), "is-error")
	entries := f.Entries(t, id)
	require.Len(t, entries, 2)
	assert.Equal(t, chat.KindError, entries[1].Kind)
}

func TestAsk_TransportFailureKeepsQuestionOnly(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	f.Backend.Set(func(fb *features.FakeBackend) { fb.Status = http.StatusBadGateway })

	b.do(http.MethodPost, "/api/chat/ask", `{"question":"anyone there?"}`)

	entries := f.Entries(t, id)
	require.Len(t, entries, 1)
	assert.Equal(t, "anyone there?", entries[0].User)
}

func TestAsk_EmptyQuestionIsIgnored(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()

	rec := b.do(http.MethodPost, "/api/chat/ask", `{"question":"   "}`)

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
	assert.Empty(t, f.Entries(t, id))
}

// =============================================================================
// Entry action Tests
// =============================================================================

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		backend   func(fb *features.FakeBackend)
		wantKind  chat.Kind
		wantAdded bool
		wantBody  []string
	}{
		{
			name:      "table result",
			backend:   func(fb *features.FakeBackend) { fb.DF = `[{"name":"Medan","population":2435252}]` },
			wantKind:  chat.KindTable,
			wantAdded: true,
			wantBody:  []string{`<table class="result-table">`, "<th>population</th>", "Medan"},
		},
		{
			name:      "map result",
			backend:   func(fb *features.FakeBackend) { fb.DF = `[{"name":"Medan","geojson":{"type":"Point","coordinates":[98.67,3.59]}}]` },
			wantKind:  chat.KindTable,
			wantAdded: true,
			wantBody:  []string{`class="result-map"`, "data-features="},
		},
		{
			name:      "empty result",
			backend:   func(fb *features.FakeBackend) { fb.DF = `[]` },
			wantKind:  chat.KindTable,
			wantAdded: true,
			wantBody:  []string{"Relevant data not found!"},
		},
		{
			name:      "backend error",
			backend:   func(fb *features.FakeBackend) { fb.RunError = "no such column" },
			wantKind:  chat.KindError,
			wantAdded: true,
			wantBody:  []string{"no such column", "is-error"},
		},
		{
			name:      "transport failure",
			backend:   func(fb *features.FakeBackend) { fb.Status = http.StatusInternalServerError },
			wantAdded: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, f := setupTestBrowser(t)
			id := b.open()
			e := seedSQL(t, f, id, "SELECT name FROM cities")
			f.Backend.Set(tt.backend)

			rec := b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/run", "")

			entries := f.Entries(t, id)
			if !tt.wantAdded {
				assert.Len(t, entries, 2)
				return
			}
			require.Len(t, entries, 3)
			assert.Equal(t, tt.wantKind, entries[2].Kind)
			assert.Equal(t, []string{"SELECT name FROM cities"}, f.Backend.Ran())

			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestRun_UnknownEntry(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()

	rec := b.do(http.MethodPost, "/api/chat/entries/missing/run", "")

	assert.Contains(t, rec.Body.String(), "entry not found")
	assert.Empty(t, f.Entries(t, id))
	assert.Empty(t, f.Backend.Ran())
}

func TestEditSave(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	e := seedSQL(t, f, id, "SELECT 1")

	rec := b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/edit", "")
	body := rec.Body.String()
	assert.Contains(t, body, "<textarea")
	assert.Contains(t, body, components.DraftSignal(e.ID))
	assert.Contains(t, body, "/api/chat/entries/"+e.ID+"/save")

	rec = b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/save",
		`{"drafts":{"`+components.DraftSignal(e.ID)+`":"SELECT 42"}}`)
	assert.NotContains(t, rec.Body.String(), "<textarea")

	entries := f.Entries(t, id)
	assert.Equal(t, "SELECT 42", entries[1].AI)
	assert.Equal(t, e.ID, entries[1].ID)
	assert.Equal(t, chat.ModeRun, f.Service.Conversation(id).Mode(e.ID))
}

func TestSave_UsesPostedDraft(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	e := seedSQL(t, f, id, "SELECT 1")

	b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/edit", "")
	rec := b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/draft",
		`{"drafts":{"`+components.DraftSignal(e.ID)+`":"SELECT 7"}}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/save", `{}`)

	assert.Equal(t, "SELECT 7", f.Entries(t, id)[1].AI)
}

func TestSave_EmptyDraftLeavesTranscript(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()
	e := seedSQL(t, f, id, "SELECT 1")
	before := f.Entries(t, id)

	b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/edit", "")
	b.do(http.MethodPost, "/api/chat/entries/"+e.ID+"/save", `{}`)

	assert.Equal(t, before, f.Entries(t, id))
	assert.Equal(t, chat.ModeRun, f.Service.Conversation(id).Mode(e.ID))
}

// =============================================================================
// Sidebar, questions and reset
// =============================================================================

func TestQuestions(t *testing.T) {
	b, f := setupTestBrowser(t)
	f.Backend.Set(func(fb *features.FakeBackend) {
		fb.Questions = []string{"How many users?", `Cities with "Medan" in the name`}
	})

	rec := b.do(http.MethodGet, "/api/chat/questions", "")

	body := rec.Body.String()
	assert.Contains(t, body, `data-question="How many users?"`)
	assert.Contains(t, body, "&#34;Medan&#34;")
}

func TestQuestions_BackendDown(t *testing.T) {
	b, f := setupTestBrowser(t)
	f.Backend.Set(func(fb *features.FakeBackend) { fb.Status = http.StatusServiceUnavailable })

	rec := b.do(http.MethodGet, "/api/chat/questions", "")

	assert.Contains(t, rec.Body.String(), "Suggestions are unavailable.")
}

func TestToggleSidebar(t *testing.T) {
	b, _ := setupTestBrowser(t)
	b.open()

	rec := b.do(http.MethodPost, "/api/chat/sidebar", "")
	assert.Contains(t, rec.Body.String(), `class="sidebar collapsed"`)

	page := b.do(http.MethodGet, "/", "")
	assert.Contains(t, page.Body.String(), `class="sidebar collapsed"`, "state should survive a reload")

	rec = b.do(http.MethodPost, "/api/chat/sidebar", "")
	assert.Contains(t, rec.Body.String(), `class="sidebar"`)
}

func TestReset(t *testing.T) {
	b, _ := setupTestBrowser(t)
	before := b.open()

	rec := b.do(http.MethodPost, "/api/chat/reset", "")
	assert.Contains(t, rec.Body.String(), "window.location.reload()")

	after := b.open()
	assert.NotEqual(t, before, after)
}

// =============================================================================
// ChatPageUpdates Tests - SSE endpoint for live updates only
// =============================================================================

func TestChatPageUpdates_SendsTranscriptOnChange(t *testing.T) {
	b, f := setupTestBrowser(t)
	id := b.open()

	req := httptest.NewRequest(http.MethodGet, "/updates", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.handler.ServeHTTP(rec, req)
		close(done)
	}()

	// another tab asks a question in the same conversation
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, f.Service.Conversation(id).Ask(context.Background(), "from another tab"))

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, "from another tab")
}

func TestChatPageUpdates_NoInitialState(t *testing.T) {
	b, _ := setupTestBrowser(t)
	b.open()

	req := httptest.NewRequest(http.MethodGet, "/updates", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	ctx, cancel := context.WithTimeout(req.Context(), 50*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	b.handler.ServeHTTP(rec, req)

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
}
