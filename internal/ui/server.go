// Package ui provides the web chat UI for a text-to-SQL backend.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/ui/notifier"
	"github.com/leapstack-labs/leapchat/internal/ui/resources"
	"github.com/leapstack-labs/leapchat/internal/ui/router"
)

const reloadDebounce = 100 * time.Millisecond

// Server is the main UI server.
type Server struct {
	service      *chat.Service
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	staticDir    string
	logger       *slog.Logger
	notifier     *notifier.Notifier
	reload       func()
}

// Config holds configuration for the UI server.
type Config struct {
	Service       *chat.Service
	Port          int
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
	// StaticDir overrides the directory watched for asset changes.
	StaticDir string
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = resources.Dir()
	}

	return &Server{
		service:      cfg.Service,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		staticDir:    staticDir,
		logger:       logger,
		notifier:     notifier.New(),
		reload:       func() {},
	}
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	reload, err := router.SetupRoutes(r, s.service, s.sessionStore, s.notifier, s.IsDev(), s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	s.reload = reload
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", s.URL())

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.staticDir != "" {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// URL returns the local address the server listens on.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// IsDev reports whether assets are served from disk with hot reload.
func (s *Server) IsDev() bool {
	return resources.Dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchFiles reloads open pages when a stylesheet or script changes.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.staticDir); err != nil {
		s.logger.Error("failed to watch static directory", "dir", s.staticDir, "error", err)
		// keep serving without hot reload
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isAssetChange(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				s.logger.Debug("asset changed, reloading pages", "file", event.Name)
				s.reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func isAssetChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".css", ".js":
		return true
	}
	return false
}
