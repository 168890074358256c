// Package api is the HTTP surface of the distribution server: it hands
// out the raw Flagfile, evaluates single flags, and streams update
// events to connected clients.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagfile/internal/config"
	"github.com/TimurManjosov/flagfile/internal/snapshot"
	"github.com/TimurManjosov/flagfile/internal/telemetry"
)

type Server struct {
	cfg *config.Config
	log zerolog.Logger
}

func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(telemetry.Middleware)
	if s.cfg.RateLimitPerIP > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitPerIP, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The event stream stays open indefinitely, so the timeout wraps
	// only the request/response routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/flagfile", s.auth(s.handleFlagfile))
		r.Get("/eval/{flag}", s.auth(s.handleEval))
	})
	r.Get("/events", s.auth(s.handleEvents))

	return r
}

// ListenAndServe runs the server until the context is canceled, then
// tells stream clients to reconnect and drains within the grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     s.Router(),
		ReadTimeout: 3 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("serving flagfile")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	snapshot.PublishShutdown()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// auth enforces the configured bearer token. An empty token disables
// authentication.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AuthToken)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
