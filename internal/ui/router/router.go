// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapchat/internal/chat"
	chatFeature "github.com/leapstack-labs/leapchat/internal/ui/features/chat"
	"github.com/leapstack-labs/leapchat/internal/ui/notifier"
	"github.com/leapstack-labs/leapchat/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server. In dev mode it also
// returns the function that tells open pages to reload.
func SetupRoutes(
	router chi.Router,
	service *chat.Service,
	sessionStore *sessions.CookieStore,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) (func(), error) {
	reload := func() {}
	if isDev {
		reload = setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())

	if err := chatFeature.SetupRoutes(router, service, sessionStore, notify, isDev, logger); err != nil {
		return nil, err
	}

	return reload, nil
}

// setupReload registers /reload, which pages keep open in dev mode, and
// /hotreload, which external tools hit after a rebuild.
func setupReload(router chi.Router) func() {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	trigger := func() {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
	}

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		trigger()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return trigger
}
