package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/sse"
)

// NewRouter creates a chi router with all folders API routes mounted.
// authEnabled controls whether Bearer token auth is enforced. broker, if
// non-nil, serves the SSE event feed at GET /events inside the auth group.
func NewRouter(svc *Service, broker *sse.Broker, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/folders", h.GetForest)
	r.Post("/folders", h.CreateItem)
	r.Put("/folders/{id}", h.UpdateItem)
	r.Delete("/folders/{id}", h.DeleteItem)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
