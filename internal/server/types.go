// Package server defines the wire payload types shared by session and
// handler logic, along with error classification helpers.
package server

import "strings"

// maxMessageChars is the longest chat message accepted from a client,
// measured in characters rather than bytes. Longer messages are dropped
// before publication, never truncated.
const maxMessageChars = 128

// Envelope is the unit delivered to every subscriber of a room. The user
// field is always set by the server from the session's user name; it is
// never taken from the client.
type Envelope struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// ChatInput is the JSON shape expected from chat clients. Message is a
// pointer so a frame missing the "message" key can be told apart from one
// carrying an empty string; a missing key drops the frame.
type ChatInput struct {
	Message *string `json:"message"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
