package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Authentication
	mux.HandleFunc("/api/auth", s.app.AuthHandler.AuthenticateHandler) // POST - run login flow

	// Motor proxy - sites host (cookie auth)
	mux.HandleFunc("/api/motor/token", s.app.ProxyHandler.TokenHandler) // POST - signed token request
	mux.HandleFunc("/api/motor/", s.app.ProxyHandler.SitesProxyHandler)
	mux.HandleFunc("/api/motor-session/", s.app.ProxyHandler.SitesSessionProxyHandler)

	// Motor proxy - API host (signature auth)
	mux.HandleFunc("/api/motorv1/", s.app.ProxyHandler.APIProxyHandler)
	mux.HandleFunc("/api/motorv1-session/", s.app.ProxyHandler.APISessionProxyHandler)

	// Session management
	mux.HandleFunc("/api/session/", s.app.SessionHandler.DeleteHandler) // DELETE /{id}

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
