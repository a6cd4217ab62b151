// Package api provides the local control API for the Shelfmark daemon. The
// surface is loopback-only by convention: the desktop shell and CLI talk to
// it, nothing else should.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmark/shelfmark/internal/search"
	"github.com/shelfmark/shelfmark/internal/service"
	"github.com/shelfmark/shelfmark/internal/store"
	shelfsync "github.com/shelfmark/shelfmark/internal/sync"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	catalog  *service.CatalogService
	shelf    *service.ShelfService
	settings *service.SettingsService
	syncer   *shelfsync.Manager
	search   *search.Index
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates the control API server with all routes configured.
func NewServer(
	st *store.Store,
	catalog *service.CatalogService,
	shelf *service.ShelfService,
	settings *service.SettingsService,
	syncer *shelfsync.Manager,
	searchIndex *search.Index,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:    st,
		catalog:  catalog,
		shelf:    shelf,
		settings: settings,
		syncer:   syncer,
		search:   searchIndex,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Shelfmark Control API", "1.0.0")
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerMergeRoutes()
	s.registerShelfRoutes()
	s.registerSettingsRoutes()
	s.registerSyncRoutes()
	s.registerSearchRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// The shell UI is served from its own dev port during development.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}
