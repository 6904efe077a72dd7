// Package server wires HTTP handlers into a ServeMux for the roomcast
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the health check, both WebSocket endpoints, and the view counter
// operations.
func (s *ChatService) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	// Exact-root pattern so wrong-method requests to the other routes get
	// a 405 instead of falling through to the health check.
	mux.HandleFunc("GET /{$}", HealthHandler)
	mux.HandleFunc("GET /ws/ping", s.EchoHandler)
	mux.HandleFunc("GET /ws/room/{room}/user/{user}", s.ChatHandler)
	mux.HandleFunc("GET /views", s.ViewsHandler)
	mux.HandleFunc("POST /reset", s.ResetHandler)
	return mux
}
