package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/doclib/internal/library"
)

// NewRouter creates a chi router with all library routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *library.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{id}", h.GetDocument)
	r.Post("/documents/{id}/preview", h.Preview)

	r.Get("/tree", h.Tree)
	r.Post("/tree/expand", h.Expand)
	r.Post("/tree/collapse", h.Collapse)

	r.Get("/kinds", h.Kinds)
	r.Get("/status", h.Status)
	r.Post("/refresh", h.Refresh)
	r.Post("/uploads", h.Upload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
