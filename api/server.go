package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/qa"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// DefaultMaxBatch caps the number of questions in one batch request.
const DefaultMaxBatch = 50

// Engine answers questions. *qa.Engine implements it.
type Engine interface {
	Ask(ctx context.Context, question string) (*qa.Result, error)
	AskBatch(ctx context.Context, questions []string) ([]*qa.Result, error)
}

// VersionSource reports the policy version held by the store.
// storage.ClauseRepository implements it.
type VersionSource interface {
	GetPolicyVersion(ctx context.Context) (*core.PolicyVersion, error)
}

// Server serves the HTTP API.
type Server struct {
	engine   Engine
	versions VersionSource
	gatherer prometheus.Gatherer
	metrics  *httpMetrics
	maxBatch int
	logger   *slog.Logger
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics registers HTTP metrics on reg and serves gatherer on /metrics.
// Without it /metrics serves the default Prometheus registry.
func WithMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.metrics = newHTTPMetrics("policygraph", reg)
		s.gatherer = gatherer
		return nil
	}
}

// WithMaxBatch caps the number of questions per batch request.
// Default is DefaultMaxBatch.
func WithMaxBatch(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return fmt.Errorf("%w: max batch must be positive, got %d", core.ErrInvalidParameter, n)
		}
		s.maxBatch = n
		return nil
	}
}

// NewServer creates the API server. versions may be nil, in which case
// policy_version is not checked.
func NewServer(engine Engine, versions VersionSource, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}

	s := &Server{
		engine:   engine,
		versions: versions,
		gatherer: prometheus.DefaultGatherer,
		maxBatch: DefaultMaxBatch,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.requestLogger())
	if s.metrics != nil {
		r.Use(s.metrics.middleware())
	}

	r.GET("/", s.health)
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.POST("/query", s.query)
	v1.POST("/batch_query", s.batchQuery)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
