package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/stashdb/stashdb/pkg/api"
	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/catalog"
	"github.com/stashdb/stashdb/pkg/cursor"
)

// Server holds references to the catalog, cursor registry, and router.
type Server struct {
	router  *mux.Router
	catalog *catalog.Catalog
	cursors *cursor.Registry
}

// Option configures a Server
type Option func(*config)

type config struct {
	catalogOptions []catalog.Option
	cursorOptions  []cursor.Option
	authorizer     auth.Authorizer
}

// WithCatalogOptions forwards options to the catalog.
func WithCatalogOptions(options ...catalog.Option) Option {
	return func(c *config) {
		c.catalogOptions = append(c.catalogOptions, options...)
	}
}

// WithCursorOptions forwards options to the cursor registry.
func WithCursorOptions(options ...cursor.Option) Option {
	return func(c *config) {
		c.cursorOptions = append(c.cursorOptions, options...)
	}
}

// WithAuthorizer sets the authorizer for the command surface (default:
// allow all).
func WithAuthorizer(authz auth.Authorizer) Option {
	return func(c *config) {
		c.authorizer = authz
	}
}

// NewServer creates a new instance of Server.
func NewServer(options ...Option) *Server {
	var cfg config
	for _, option := range options {
		option(&cfg)
	}

	s := &Server{
		router:  mux.NewRouter(),
		catalog: catalog.NewCatalog(cfg.catalogOptions...),
		cursors: cursor.NewRegistry(cfg.cursorOptions...),
	}

	handler := api.NewHandler(s.catalog, s.cursors, cfg.authorizer)
	handler.RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return s
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s took %s", r.Method, r.URL.Path, elapsed)
	})
}

// InitCatalog loads catalog state from a file, if it exists.
func (s *Server) InitCatalog(filename string) {
	if err := s.catalog.LoadFromFile(filename); err != nil {
		log.Printf("ERROR: Could not load catalog from file %s: %v", filename, err)
	} else {
		log.Printf("INFO: Loaded catalog from file %s successfully", filename)
	}
}

// SaveCatalog saves the current catalog state to file.
func (s *Server) SaveCatalog(filename string) {
	if err := s.catalog.SaveToFile(filename); err != nil {
		log.Printf("ERROR: Could not save catalog to file %s: %v", filename, err)
	} else {
		log.Printf("INFO: Saved catalog to file %s successfully", filename)
	}
}

// StartBackgroundWorkers starts the cursor registry's idle reaper.
func (s *Server) StartBackgroundWorkers() {
	s.cursors.StartBackgroundReaper()
}

// StopBackgroundWorkers stops the cursor registry's idle reaper.
func (s *Server) StopBackgroundWorkers() {
	s.cursors.StopBackgroundReaper()
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}
