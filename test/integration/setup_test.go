// Package integration contains integration tests for the roomcast server.
//
// These tests exercise the complete system over real HTTP servers and
// WebSocket connections: room fan-out, the view counter endpoints, and the
// handshake-gated echo protocol.
package integration

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomcast/internal/server"
	"roomcast/test/testhelpers"
)

// newChatServer starts a fresh service on an httptest server, allows its
// origin, and returns the server plus the ws:// base URL. Configuration is
// reset during cleanup.
func newChatServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	svc := server.NewChatService()
	ts := httptest.NewServer(svc.SetupRoutes())
	t.Cleanup(ts.Close)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{ts.URL}, cfg.AllowedOrigins...)
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	return ts, "ws" + strings.TrimPrefix(ts.URL, "http")
}

// chatURL builds the join URL for a room and user.
func chatURL(wsBase string, room int, user string) string {
	return fmt.Sprintf("%s/ws/room/%d/user/%s", wsBase, room, user)
}

// waitForViews polls the /views endpoint until it reports want or the
// deadline passes.
func waitForViews(t *testing.T, baseURL, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var got string
	for time.Now().Before(deadline) {
		resp := testhelpers.MakeRequest(t, "GET", baseURL+"/views")
		got = testhelpers.ReadBodyString(t, resp)
		if got == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Expected view count %s, still %s after waiting", want, got)
}
