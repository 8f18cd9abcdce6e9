// Package web provides the HTTP server and web UI for the custom player.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-spotify-custom-player/internal/auth"
	"github.com/justestif/go-spotify-custom-player/internal/config"
	"github.com/justestif/go-spotify-custom-player/internal/imagecheck"
	"github.com/justestif/go-spotify-custom-player/internal/session"
)

// ServerConfig holds server configuration and collaborators.
type ServerConfig struct {
	Server      config.ServerConfig
	Images      config.ImagesConfig
	Provider    auth.Provider
	Sessions    *session.Manager
	Validator   *imagecheck.Validator
	Players     PlayerFactory
	TemplatesFS fs.FS
	StaticFS    fs.FS
	Logger      *log.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router    chi.Router
	server    *http.Server
	templates *Templates
	sessions  *session.Manager
	handlers  *Handlers
	logger    *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Provider == nil || cfg.Sessions == nil || cfg.Validator == nil {
		return nil, errors.New("server requires a provider, a session manager and a validator")
	}
	if cfg.Players == nil {
		cfg.Players = SpotifyPlayers
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	// Create template manager
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(HandlersConfig{
		Flow:          auth.NewFlow(cfg.Provider),
		Lifecycle:     auth.NewLifecycle(cfg.Provider),
		Sessions:      cfg.Sessions,
		Validator:     cfg.Validator,
		Players:       cfg.Players,
		Templates:     templates,
		SecureCookies: cfg.Server.SecureCookies,
	})

	router := chi.NewRouter()

	s := &Server{
		router:    router,
		templates: templates,
		sessions:  cfg.Sessions,
		handlers:  handlers,
		logger:    cfg.Logger,
	}

	// Configure middleware
	s.setupMiddleware()

	// Configure routes
	limiter := NewIPRateLimiter(cfg.Images.UploadsPerMinute, time.Minute, cfg.Images.UploadBurst, 10*time.Minute)
	s.setupRoutes(cfg.StaticFS, limiter)

	// Create HTTP server
	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.sessions.LoadAndSave)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS, limiter RateLimiter) {
	// Static files
	fileServer := http.FileServer(http.FS(staticFS))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/healthz", s.handlers.Healthz)

	// Pages
	s.router.Get("/", s.handlers.Home)
	s.router.Get("/upload", s.handlers.UploadForm)
	s.router.With(rateLimit(limiter, s.handlers.UploadLimited)).Post("/upload", s.handlers.Upload)
	s.router.Get("/custom", s.handlers.Custom)
	s.router.Get("/custom/track", s.handlers.CustomTrack)

	// Auth routes
	s.router.Get("/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Get("/signout", s.handlers.Signout)

	s.router.NotFound(s.handlers.NotFound)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "url", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully once ctx is done.
// The caller cancels ctx on interrupt signals.
func (s *Server) Run(ctx context.Context) error {
	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for cancellation or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
