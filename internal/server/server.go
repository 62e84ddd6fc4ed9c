// Package server provides the HTTP API over the indexing and retrieval engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/config"
	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/internal/storage"
)

// Server is the HTTP server for the blockoli API.
type Server struct {
	store    storage.Store
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// New creates a server with the given dependencies.
func New(
	store storage.Store,
	idx *indexer.Indexer,
	srch *searcher.Searcher,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:    store,
		indexer:  idx,
		searcher: srch,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/projects", s.handleCreateProject)
		r.Get("/projects", s.handleListProjects)
		r.Route("/projects/{name}", func(r chi.Router) {
			r.Get("/", s.handleProjectInfo)
			r.Delete("/", s.handleDeleteProject)
			r.Post("/index", s.handleIndex)
			r.Post("/search", s.handleSearch)
			r.Get("/blocks", s.handleListBlocks)
			r.Post("/blocks/search", s.handleSearchBlockContent)
			r.Get("/functions", s.handleListFunctionBlocks)
			r.Get("/functions/{function}", s.handleFindFunction)
		})
	})
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request with the request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
