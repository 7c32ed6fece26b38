package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeBackend is an in-process text-to-SQL backend.
// Zero values answer with an empty question list, "SELECT 1" and "[]".
type FakeBackend struct {
	mu        sync.Mutex
	Questions []string
	SQL       string
	SQLError  string
	DF        string
	RunError  string
	Status    int // non-zero forces every response to this status
	RanSQL    []string
}

// Set updates the fake's answers under its lock.
func (b *FakeBackend) Set(fn func(b *FakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// Ran returns the SQL statements received by run_sql.
func (b *FakeBackend) Ran() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.RanSQL...)
}

// ServeHTTP implements the three backend endpoints.
func (b *FakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Status != 0 {
		w.WriteHeader(b.Status)
		return
	}

	var body any
	switch r.URL.Path {
	case "/api/v0/generate_questions":
		questions := b.Questions
		if questions == nil {
			questions = []string{}
		}
		body = questions
	case "/api/v0/generate_sql":
		switch {
		case b.SQLError != "":
			body = map[string]string{"error": b.SQLError}
		case b.SQL != "":
			body = map[string]string{"sql": b.SQL}
		default:
			body = map[string]string{"sql": "SELECT 1"}
		}
	case "/api/v0/run_sql":
		var req struct {
			SQL string `json:"sql"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.RanSQL = append(b.RanSQL, req.SQL)
		switch {
		case b.RunError != "":
			body = map[string]string{"error": b.RunError}
		case b.DF != "":
			body = map[string]string{"df": b.DF}
		default:
			body = map[string]string{"df": "[]"}
		}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// NewBackend starts a FakeBackend on a test HTTP server and returns it with
// the server's base URL.
func NewBackend(t testing.TB) (*FakeBackend, string) {
	t.Helper()
	backend := &FakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv.URL
}
