// Package server assembles the HTTP API and runs it under a suture supervisor.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"readtrac/internal/auth"
	"readtrac/internal/book"
	"readtrac/internal/catalog"
	"readtrac/internal/httpx"
	"readtrac/internal/metrics"
	"readtrac/internal/recommend"
	"readtrac/internal/review"
)

// RouterDeps carries the handlers and cross-cutting settings for NewRouter.
type RouterDeps struct {
	Books     *book.HTTPHandler
	Reviews   *review.HTTPHandler
	Recommend *recommend.HTTPHandler
	Catalog   *catalog.HTTPHandler
	Auth      *auth.HTTPHandler

	// Ready reports whether the storage backend answers.
	Ready    func(ctx context.Context) error
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer

	RateLimiter  *httpx.RateLimiter
	CORSOrigins  []string
	EnableHSTS   bool
	MaxBodyBytes int64
	// JWTSecret protects mutating routes. Empty leaves them open.
	JWTSecret string
}

func NewRouter(deps RouterDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(httpx.RequestIDMiddleware)
	r.Use(httpx.RecoveryMiddleware)
	r.Use(httpx.AccessLogMiddleware)
	r.Use(metricsMiddleware(deps.Metrics))
	r.Use(httpx.SecurityHeadersMiddleware(deps.EnableHSTS))
	r.Use(httpx.CORSMiddleware(deps.CORSOrigins))
	if deps.MaxBodyBytes > 0 {
		r.Use(httpx.RequestSizeLimitMiddleware(deps.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONSuccess(w, r, map[string]string{"status": "ok"}, nil)
	})
	r.Get("/readyz", readyHandler(deps.Ready))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}
		requireOwner := httpx.AuthMiddleware(deps.JWTSecret)

		if deps.Auth != nil {
			r.Post("/auth/login", deps.Auth.Login)
		}

		r.Route("/books", func(r chi.Router) {
			r.Get("/", deps.Books.List)
			r.With(requireOwner).Post("/", deps.Books.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Books.Get)
				r.Get("/reviews", deps.Reviews.ListForBook)

				r.Group(func(r chi.Router) {
					r.Use(requireOwner)
					r.Put("/", deps.Books.Update)
					r.Delete("/", deps.Books.Delete)
					r.Patch("/progress", deps.Books.UpdateProgress)
					r.Patch("/rating", deps.Books.UpdateRating)
					r.Patch("/notes", deps.Books.UpdateNotes)
					r.Post("/reviews", deps.Reviews.Create)
					r.Delete("/reviews", deps.Reviews.DeleteForBook)
				})
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", deps.Reviews.List)
			r.Get("/{id}", deps.Reviews.Get)
			r.With(requireOwner).Put("/{id}", deps.Reviews.Update)
			r.With(requireOwner).Delete("/{id}", deps.Reviews.Delete)
		})

		r.Get("/recommendations", deps.Recommend.Recommend)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/search", deps.Catalog.Search)
			r.With(requireOwner).Post("/import", deps.Catalog.Import)
		})
	})

	return r
}

func readyHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := ready(ctx); err != nil {
				httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Database not ready", nil)
				return
			}
		}
		httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
	}
}
