// Package server wires the shared chat state together for the HTTP layer.
package server

// ChatService owns the state shared by every connection: the room registry
// and the global view counter. Handlers hang off the service so tests can
// run isolated instances side by side.
type ChatService struct {
	rooms *Registry
	views *ViewCounter
}

// NewChatService creates a service whose rooms use the room buffer size
// from the current configuration.
func NewChatService() *ChatService {
	cfg := currentConfig()
	return &ChatService{
		rooms: NewRegistry(cfg.RoomBufferSize),
		views: &ViewCounter{},
	}
}

// Rooms returns the service's room registry.
func (s *ChatService) Rooms() *Registry {
	return s.rooms
}

// Views returns the service's view counter.
func (s *ChatService) Views() *ViewCounter {
	return s.views
}
