package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/http/handlers"
	"github.com/linkpage/server/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(accessHandler *handlers.AccessHandler, pageHandler *handlers.PageHandler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/access", func(r chi.Router) {
		r.Post("/verify_pin", accessHandler.HandleVerifyPin)
		r.Post("/remembered", accessHandler.HandleCheckRemembered)
		r.Post("/remember", accessHandler.HandleRememberDevice)
		r.Post("/forget", accessHandler.HandleForgetDevice)
		r.Post("/download", accessHandler.HandleDownload)
	})

	// Owner-side management; authenticated upstream by the account layer
	r.Route("/pages", func(r chi.Router) {
		r.Post("/", pageHandler.HandleCreatePage)
		r.Post("/{pageID}/pin", pageHandler.HandleChangePin)
		r.Patch("/{pageID}", pageHandler.HandleUpdateSettings)
		r.Post("/{pageID}/deactivate", pageHandler.HandleDeactivatePage)
		r.Delete("/{pageID}", pageHandler.HandleDeletePage)
	})

	return r
}
