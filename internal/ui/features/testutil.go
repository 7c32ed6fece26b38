// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/gateway"
	"github.com/leapstack-labs/leapchat/internal/store"
	"github.com/leapstack-labs/leapchat/internal/testutil"
	"github.com/leapstack-labs/leapchat/internal/ui/notifier"
)

// FakeBackend is the in-process text-to-SQL backend used by handler tests.
type FakeBackend = testutil.FakeBackend

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Service      *chat.Service
	Store        *store.Memory
	Backend      *FakeBackend
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture wires a chat service to a fake backend over HTTP and an
// in-memory transcript store.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	backend, url := testutil.NewBackend(t)

	client, err := gateway.New(gateway.Config{
		BaseURL: url,
		Timeout: 5 * time.Second,
		Logger:  logger,
	})
	require.NoError(t, err)

	mem, err := store.NewMemory(16)
	require.NoError(t, err)

	return &TestFixture{
		Service:      chat.NewService(mem, client, logger),
		Store:        mem,
		Backend:      backend,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
	}
}

// Seed appends entries to a conversation.
func (f *TestFixture) Seed(t *testing.T, conversationID string, entries ...chat.Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, f.Store.Append(context.Background(), conversationID, e))
	}
}

// Entries returns a conversation's stored entries.
func (f *TestFixture) Entries(t *testing.T, conversationID string) []chat.Entry {
	t.Helper()
	entries, err := f.Store.Entries(context.Background(), conversationID)
	require.NoError(t, err)
	return entries
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
