package chat

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/leapchat/internal/chat"
	"github.com/leapstack-labs/leapchat/internal/ui/notifier"
)

// SetupRoutes configures routes for the chat feature and forwards
// conversation changes to the notifier.
func SetupRoutes(
	router chi.Router,
	service *chat.Service,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(service, sessionStore, notify, isDev, logger)
	service.OnChange(notify.Broadcast)

	router.Get("/", handlers.ChatPage)
	router.Get("/updates", handlers.ChatPageUpdates)

	router.Route("/api/chat", func(r chi.Router) {
		r.Post("/ask", handlers.Ask)
		r.Get("/questions", handlers.Questions)
		r.Post("/sidebar", handlers.ToggleSidebar)
		r.Post("/reset", handlers.Reset)

		r.Route("/entries/{id}", func(r chi.Router) {
			r.Post("/run", handlers.Run)
			r.Post("/edit", handlers.Edit)
			r.Post("/draft", handlers.Draft)
			r.Post("/save", handlers.Save)
		})
	})

	return nil
}
