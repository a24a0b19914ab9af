// Package app wires configuration into services, handlers and supervised
// background loops. Commands in cmd/readtrac build one App per run.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/thejerf/suture/v4"

	"readtrac/internal/auth"
	"readtrac/internal/book"
	"readtrac/internal/catalog"
	"readtrac/internal/config"
	"readtrac/internal/database"
	"readtrac/internal/httpx"
	"readtrac/internal/logging"
	"readtrac/internal/metrics"
	"readtrac/internal/platform/cache"
	"readtrac/internal/platform/googlebooks"
	"readtrac/internal/platform/sanitize"
	"readtrac/internal/recommend"
	"readtrac/internal/review"
	"readtrac/internal/server"
)

type App struct {
	Config   *config.Config
	DB       *database.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Books     *book.Service
	Reviews   *review.Service
	Recommend *recommend.Service
	Catalog   *catalog.Service
	Auth      *auth.Service

	cache       *cache.Cache
	gbooks      *googlebooks.Client
	rateLimiter *httpx.RateLimiter
}

// New opens storage and builds every service. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Registry: metrics.NewRegistry(),
	}
	a.Metrics = metrics.NewCollector(a.Registry)

	policy := sanitize.New()

	var (
		bookRepo   book.Repository
		reviewRepo review.Repository
	)
	switch db.Backend {
	case database.BackendPostgres:
		bookRepo = book.NewPostgresRepo(db.Pool, cfg.Database.QueryTimeout)
		reviewRepo = review.NewPostgresRepo(db.Pool)
	default:
		bookRepo = book.NewSQLiteRepo(db.SQL)
		reviewRepo = review.NewSQLiteRepo(db.SQL)
	}
	a.Books = book.NewService(bookRepo, policy)
	a.Reviews = review.NewService(reviewRepo, a.Books, policy)

	if cfg.Catalog.Enabled {
		if err := a.openCatalog(policy); err != nil {
			db.Close()
			return nil, err
		}
	}

	// A nil *googlebooks.Client must not leak into the interfaces below.
	var (
		source   recommend.CatalogSource
		searcher catalog.Searcher
	)
	if a.gbooks != nil {
		source, searcher = a.gbooks, a.gbooks
	}
	a.Recommend = recommend.NewService(a.Books, source, a.Metrics)
	a.Catalog = catalog.NewService(searcher, a.Books)
	a.Auth = auth.NewService(cfg.Auth)
	if cfg.Server.RateLimitRPS > 0 {
		a.rateLimiter = httpx.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}

	logging.Info().
		Str("backend", string(db.Backend)).
		Bool("catalog", a.gbooks != nil).
		Bool("auth", cfg.Auth.Enabled()).
		Msg("application initialized")
	return a, nil
}

func (a *App) openCatalog(policy *sanitize.Policy) error {
	opts := []googlebooks.Option{
		googlebooks.WithSanitizer(policy),
		googlebooks.WithMetrics(a.Metrics),
	}
	if a.Config.Catalog.GoogleBooks.CacheTTL > 0 {
		c, err := cache.Open(a.Config.Cache)
		if err != nil {
			return fmt.Errorf("open catalog cache: %w", err)
		}
		a.cache = c
		opts = append(opts, googlebooks.WithCache(c))
	}
	a.gbooks = googlebooks.NewClient(a.Config.Catalog.GoogleBooks, opts...)
	return nil
}

// Migrate runs a goose command against the configured database.
func (a *App) Migrate(ctx context.Context, command string) error {
	return a.DB.Migrate(ctx, command)
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	secret := ""
	if a.Config.Auth.Enabled() {
		secret = a.Config.Auth.JWTSecret
	}
	return server.NewRouter(server.RouterDeps{
		Books:        book.NewHTTPHandler(a.Books),
		Reviews:      review.NewHTTPHandler(a.Reviews),
		Recommend:    recommend.NewHTTPHandler(a.Recommend),
		Catalog:      catalog.NewHTTPHandler(a.Catalog),
		Auth:         auth.NewHTTPHandler(a.Auth),
		Ready:        a.DB.Ping,
		Metrics:      a.Metrics,
		Gatherer:     a.Registry,
		RateLimiter:  a.rateLimiter,
		CORSOrigins:  a.Config.Server.CORSOrigins,
		EnableHSTS:   a.Config.Server.EnableHSTS,
		MaxBodyBytes: a.Config.Server.MaxBodyBytes,
		JWTSecret:    secret,
	})
}

// Services returns the long-running loops for `serve`: the HTTP server, the
// rate limiter janitor and badger value-log GC when those are enabled.
func (a *App) Services() []suture.Service {
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
	services := []suture.Service{server.NewHTTPService(srv, a.Config.Server.ShutdownTimeout)}
	if a.rateLimiter != nil {
		services = append(services, server.Loop{Name: "rate-limiter-janitor", Run: a.rateLimiter.Run})
	}
	if a.cache != nil {
		services = append(services, a.cache)
	}
	return services
}

// Serve supervises Services until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	return server.Supervise(ctx, a.Config.Server.ShutdownTimeout, a.Services()...)
}

func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}
