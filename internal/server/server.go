/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and renders the three tabs.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"fitplan/internal/config"
	"fitplan/internal/planner"
	"fitplan/internal/render"
	"fitplan/internal/session"
	"fitplan/internal/utility"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	cfg config.Config

	// store holds per-browser-session state; plans reads and writes through it.
	store   session.Store
	plans   *planner.Service
	cookies *session.CookieManager

	// hub pushes REFRESH to a session's open tabs.
	hub *utility.Hub

	markdown *render.Markdown

	startTime time.Time
}

// New wires the Server. sessionSecret signs the session cookie.
func New(cfg config.Config, sessionSecret []byte, store session.Store, plans *planner.Service, hub *utility.Hub) *Server {
	return &Server{
		port:     cfg.Port,
		cfg:      cfg,
		store:    store,
		plans:    plans,
		cookies:  session.NewCookieManager(sessionSecret, cfg.IsProduction()),
		hub:      hub,
		markdown: render.NewMarkdown(),

		startTime: time.Now(),
	}
}

// HTTPServer returns a configured *http.Server. The write timeout leaves room for a
// model call with all its retries.
func (s *Server) HTTPServer() *http.Server {
	modelBudget := 3*s.cfg.Chat.Timeout + 30*time.Second
	if g := 3*s.cfg.Gemini.Timeout + 30*time.Second; g > modelBudget {
		modelBudget = g
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,        // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second,   // Maximum duration for reading the entire request.
		WriteTimeout: modelBudget,        // Maximum duration before timing out writes of the response.
	}
}
