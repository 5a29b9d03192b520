package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"papermill/internal/config"
	"papermill/internal/convert"
	"papermill/internal/logging"
	"papermill/internal/services"
)

// Server exposes the conversion pipeline over HTTP. It binds to the loopback
// address by default; anything wider is an operator decision made in config.
type Server struct {
	cfg    *config.Config
	svc    *convert.Service
	logger *slog.Logger
	http   *http.Server
}

// NewServer constructs the API server around a conversion service.
func NewServer(cfg *config.Config, svc *convert.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.http = &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router assembles the route table. Exposed separately so tests can drive the
// handlers through httptest without binding a socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/convert", s.handleConvert)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start begins serving and blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return services.Wrap(services.ErrInternal, "api", "listen", "bind "+s.http.Addr, err)
	}
	s.logger.Info("api listening",
		logging.String("addr", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_started"),
	)
	if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return services.Wrap(services.ErrInternal, "api", "serve", "http server failed", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		requestID, _ := services.RequestIDFromContext(r.Context())
		s.logger.Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("duration", time.Since(started)),
			logging.String(logging.FieldCorrelationID, requestID),
		)
	})
}

// requireToken enforces bearer auth on the API surface when a token is
// configured. The health probe stays open either way.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.cfg.Paths.APIToken)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		supplied := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if supplied != token {
			writeError(w, http.StatusUnauthorized, "validation_error", "missing or invalid API token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
