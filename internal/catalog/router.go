package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/doclib/internal/api"
)

// NewRouter creates a chi router with the store routes mounted.
// sseHandler, if non-nil, is mounted at GET /api/events.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(api.AuthMiddleware(authEnabled, token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/{id}", h.GetDocument)
		r.Post("/uploads", h.Upload)
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})
	r.Get("/files/*", h.ServeFile)

	return r
}
