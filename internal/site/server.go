// Package site serves a Doxygen doc set together with the search and
// navigation API and the websocket stream that pushes late results.
package site

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/docnav/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DocsDir  string // static files served under /, empty to disable
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server is the docnav HTTP server.
type Server struct {
	cfg        Config
	sessions   *session.Manager
	router     chi.Router
	httpServer *http.Server
}

// New creates a server whose sessions come from sessions.
func New(cfg Config, sessions *session.Manager) *Server {
	s := &Server{cfg: cfg, sessions: sessions}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		s.registerAPI(r)
	})

	// Websockets outlive the request timeout.
	r.Get("/ws/sessions/{id}", s.handleWebSocket)

	if s.cfg.DocsDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.DocsDir)))
	}

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port. If open is set the default
// browser is pointed at the doc set.
func (s *Server) Start(open bool) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", s.cfg.Port)
	if open {
		go openBrowser(url)
	}
	log.Printf("docnav: serving %s at %s", s.cfg.DocsDir, url)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
