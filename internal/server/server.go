package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/nthompson1415/AVECapstone/internal/analyses"
	"github.com/nthompson1415/AVECapstone/internal/api"
	"github.com/nthompson1415/AVECapstone/internal/batch"
	"github.com/nthompson1415/AVECapstone/internal/config"
	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/scorer"
)

// Server holds all the components for the web application
type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	router        *mux.Router
	engine        *scorer.Engine
	analysesStore *analyses.Store
	runStore      *batch.Store
	limiter       *api.RateLimiter
}

// BuildEngine creates the scoring engine cfg describes.
func BuildEngine(cfg config.Config, logger *slog.Logger) (*scorer.Engine, error) {
	tb, err := harm.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}
	var alt scorer.Scorer
	if cfg.Engine == scorer.EngineLearned {
		client := &http.Client{Timeout: 30 * time.Second}
		alt = scorer.NewLearned(scorer.SourceLoader(cfg.ModelPath, client))
	}
	return scorer.NewEngine(alt, scorer.EngineConfig{Timeout: cfg.ScorerTimeout, TieBreak: tb}, logger), nil
}

// New creates a new Server with all components initialized. Store failures
// are logged and leave the matching routes answering 503.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine, err := BuildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		router: mux.NewRouter(),
		engine: engine,
	}

	analysesStore, err := analyses.NewStore(cfg.DataDir, logger)
	if err != nil {
		s.logger.Warn("analyses store not available", "error", err)
	} else {
		s.analysesStore = analysesStore
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		s.logger.Warn("data directory not available", "dir", cfg.DataDir, "error", err)
	}
	runStore, err := batch.OpenStore(filepath.Join(cfg.DataDir, "runs.db"))
	if err != nil {
		s.logger.Warn("run store not available", "error", err)
	} else {
		s.runStore = runStore
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	if s.cfg.RateLimitRPS > 0 {
		s.limiter = api.NewRateLimiter(s.cfg.RateLimitRPS, max(s.cfg.RateLimitBurst, 1))
		apiRouter.Use(s.limiter.Middleware)
	}
	api.NewHandler(s.engine, s.analysesStore, s.runStore, s.cfg, s.logger).RegisterRoutes(apiRouter)
	s.router.Use(s.logRequests)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("server listening", "url", fmt.Sprintf("http://localhost:%d", s.cfg.Port), "engine", s.engine.Name())
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.runStore != nil {
		if cerr := s.runStore.Close(); cerr != nil {
			s.logger.Error("failed to close run store", "error", cerr)
		}
	}
	return err
}
