package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"readtrac/internal/logging"
)

// HTTPService runs an *http.Server as a suture service.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve listens until ctx is canceled, then drains connections.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", h.server.Addr).Msg("http server listening")
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		logging.Info().Msg("http server stopped")
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// Loop adapts a blocking func(ctx) error to suture.Service.
type Loop struct {
	Name string
	Run  func(ctx context.Context) error
}

func (l Loop) Serve(ctx context.Context) error { return l.Run(ctx) }
func (l Loop) String() string                  { return l.Name }

// Supervise runs services under one suture supervisor until ctx is canceled.
// Failed services are restarted with suture's default backoff.
func Supervise(ctx context.Context, shutdownTimeout time.Duration, services ...suture.Service) error {
	log := logging.With("supervisor")
	root := suture.New("readtrac", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: shutdownTimeout,
	})
	for _, svc := range services {
		root.Add(svc)
	}

	err := root.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
