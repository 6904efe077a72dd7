// Package server implements the core HTTP and WebSocket functionality for
// the roomcast chat service: numbered rooms with bounded broadcast fan-out,
// per-connection chat sessions, the global view counter, and the
// handshake-gated echo protocol.
//
// The implementation is organized into specialized files for configuration,
// rooms, sessions, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows.
package server
