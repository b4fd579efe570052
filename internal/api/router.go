package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"eventsaga/internal/api/middleware"
)

// NewRouter wires the REST surface. Without a redis client the idempotency middleware is skipped.
func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.RequestID)
	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	idempotent := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		idempotent = middleware.Idempotency(redisClient)
	}

	r.Route("/products", func(r chi.Router) {
		r.Post("/async", h.CreateProductAsync)
		r.With(idempotent).Post("/sync", h.CreateProductSync)
		r.Get("/{id}/publish-status", h.GetPublishStatus)
	})

	r.With(idempotent).Post("/transfers", h.Transfer)

	r.Handle("/metrics", promhttp.Handler())

	slog.Info("registered routes",
		"routes", []string{
			"POST /products/async",
			"POST /products/sync (idempotent)",
			"GET /products/{id}/publish-status",
			"POST /transfers (idempotent)",
			"GET /metrics",
		},
	)

	return r
}
