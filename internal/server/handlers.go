// Package server exposes the HTTP handlers: WebSocket upgrades for the
// chat and echo protocols, the view counter operations, and a health check.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// ChatHandler upgrades the request and runs a chat session bound to the
// room and user named in the path. The room id must parse as an integer;
// anything else is rejected before the upgrade. The user name is taken
// verbatim and is not required to be unique.
func (s *ChatService) ChatHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.Atoi(r.PathValue("room"))
	if err != nil {
		http.Error(w, "Room id must be an integer.", http.StatusBadRequest)
		return
	}
	userName := r.PathValue("user")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	NewChatSession(s, conn, roomID, userName, r.RemoteAddr).Run()
}

// EchoHandler upgrades the request and runs the handshake-gated echo
// protocol until the client disconnects.
func (s *ChatService) EchoHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	NewEchoSession(conn, r.RemoteAddr).Run()
}

// ViewsHandler responds with the current view counter value as a decimal
// string.
func (s *ChatService) ViewsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "%d", s.views.Value())
}

// ResetHandler sets the view counter back to zero. It takes no body and
// succeeds unconditionally.
func (s *ChatService) ResetHandler(w http.ResponseWriter, _ *http.Request) {
	s.views.Reset()
	w.WriteHeader(http.StatusOK)
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Roomcast server is running!")
}
