// Package gateway is the HTTP client for the text-to-SQL backend.
//
// The backend exposes three endpoints under /api/v0: generate_questions,
// generate_sql and run_sql. A response carrying an "error" key is a logical
// failure reported by the backend and is returned as data; anything else that
// goes wrong (connection, non-2xx status, unreadable body) is returned as an
// error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	questionsPath   = "/api/v0/generate_questions"
	generateSQLPath = "/api/v0/generate_sql"
	runSQLPath      = "/api/v0/run_sql"

	questionsKey = "questions"

	// DefaultTimeout bounds a single backend round trip.
	DefaultTimeout = 60 * time.Second

	// DefaultQuestionsTTL is how long candidate questions are reused.
	DefaultQuestionsTTL = 5 * time.Minute

	maxErrorBody = 512
)

// ErrNoBaseURL is returned by New when no backend URL is configured.
var ErrNoBaseURL = errors.New("backend URL is required")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// SQLResult is the decoded generate_sql response.
type SQLResult struct {
	SQL    string
	Error  string
	Failed bool // the response carried an "error" key
}

// RunResult is the decoded run_sql response.
// DF holds the serialized row sequence as JSON text.
type RunResult struct {
	DF     string
	Error  string
	Failed bool // the response carried an "error" key
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	QuestionsTTL time.Duration // zero disables caching
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Client talks to the backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	logger    *slog.Logger
	questions *cache.Cache
	ttl       time.Duration
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		baseURL: base,
		http:    httpClient,
		logger:  logger,
		ttl:     cfg.QuestionsTTL,
	}
	if cfg.QuestionsTTL > 0 {
		c.questions = cache.New(cfg.QuestionsTTL, 2*cfg.QuestionsTTL)
	}
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Questions fetches candidate questions.
func (c *Client) Questions(ctx context.Context) ([]string, error) {
	if c.questions != nil {
		if v, ok := c.questions.Get(questionsKey); ok {
			return append([]string(nil), v.([]string)...), nil
		}
	}

	body, err := c.do(ctx, http.MethodGet, questionsPath, nil, nil)
	if err != nil {
		return nil, err
	}

	var questions []string
	if err := json.Unmarshal(body, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	if c.questions != nil {
		c.questions.Set(questionsKey, questions, cache.DefaultExpiration)
	}
	return append([]string(nil), questions...), nil
}

// GenerateSQL asks the backend to translate a question into SQL.
func (c *Client) GenerateSQL(ctx context.Context, question string) (SQLResult, error) {
	query := url.Values{}
	query.Set("question", question)

	body, err := c.do(ctx, http.MethodGet, generateSQLPath, query, nil)
	if err != nil {
		return SQLResult{}, err
	}

	fields, err := decodeObject(body)
	if err != nil {
		return SQLResult{}, fmt.Errorf("decode generate_sql response: %w", err)
	}

	if raw, ok := fields["error"]; ok {
		return SQLResult{Error: textOf(raw), Failed: true}, nil
	}
	return SQLResult{SQL: textOf(fields["sql"])}, nil
}

// RunSQL executes SQL on the backend and returns the serialized rows.
func (c *Client) RunSQL(ctx context.Context, sql string) (RunResult, error) {
	payload, err := json.Marshal(struct {
		SQL string `json:"sql"`
	}{SQL: sql})
	if err != nil {
		return RunResult{}, fmt.Errorf("encode run_sql request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, runSQLPath, nil, payload)
	if err != nil {
		return RunResult{}, err
	}

	fields, err := decodeObject(body)
	if err != nil {
		return RunResult{}, fmt.Errorf("decode run_sql response: %w", err)
	}

	if raw, ok := fields["error"]; ok {
		return RunResult{Error: textOf(raw), Failed: true}, nil
	}
	return RunResult{DF: textOf(fields["df"])}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	c.logger.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("expected a JSON object")
	}
	return fields, nil
}

// textOf returns a JSON string's value, or the raw JSON text for any other
// value. The backend sends df either as a string holding JSON or inline.
func textOf(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
