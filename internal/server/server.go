// Package server exposes the HTTP surface: workflow listing and execution,
// health, the alert websocket, Prometheus metrics, and the static frontend.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/movelabs/moveguard/internal/metrics"
	"github.com/movelabs/moveguard/internal/notify"
	"github.com/movelabs/moveguard/internal/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

// WorkflowService is the engine surface the handlers call.
type WorkflowService interface {
	List() []workflow.Summary
	Get(id string) (workflow.Summary, bool)
	Execute(ctx context.Context, pipelineID string, in workflow.Input) (*workflow.Result, error)
}

type Config struct {
	Engine WorkflowService
	Hub    *notify.Hub

	// Optional configuration.
	ListenAddr     string
	Network        string
	Version        string
	FrontendDir    string
	AllowedOrigins []string
}

func (c *Config) Validate() error {
	if c.Engine == nil {
		return errors.New("workflow service is required")
	}
	if c.Hub == nil {
		return errors.New("notify hub is required")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	return nil
}

type Server struct {
	log *slog.Logger
	cfg Config
}

func New(log *slog.Logger, cfg Config) (*Server, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{log: log, cfg: cfg}, nil
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/workflows", s.handleListWorkflows)
	r.Get("/api/workflows/{id}", s.handleGetWorkflow)
	r.Post("/api/workflows/{id}/execute", s.handleExecute)

	// Aliases kept for frontend compatibility, hyphenated pipeline names.
	r.Get("/api/workflows/dna-profiler", s.aliasGet("dna_profiler"))
	r.Post("/api/workflows/dna-profiler/execute", s.aliasExecute("dna_profiler"))
	r.Get("/api/workflows/exploit-oracle", s.aliasGet("exploit_oracle"))
	r.Post("/api/workflows/exploit-oracle/execute", s.aliasExecute("exploit_oracle"))
	r.Get("/api/workflows/threat-mesh", s.aliasGet("threat_mesh"))
	r.Post("/api/workflows/threat-mesh/execute", s.aliasExecute("threat_mesh"))

	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.FrontendDir != "" {
		if _, err := os.Stat(filepath.Join(s.cfg.FrontendDir, "index.html")); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(s.cfg.FrontendDir)))
		} else {
			s.log.Warn("frontend directory has no index.html, not serving static files", "dir", s.cfg.FrontendDir)
		}
	}

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
