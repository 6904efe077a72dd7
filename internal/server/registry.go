// Package server maintains the process-wide registry mapping room ids to
// rooms with get-or-create semantics.
package server

import "sync"

// Registry is the shared map of rooms, keyed by room id. Rooms are created
// lazily on first access and are never removed; they live for the rest of
// the process.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int]*Room
	buffer int // ring capacity handed to newly created rooms
}

// NewRegistry creates an empty registry. Rooms it creates retain up to
// buffer envelopes; a non-positive buffer falls back to the default.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = defaultRoomBuffer
	}
	return &Registry{
		rooms:  make(map[int]*Room),
		buffer: buffer,
	}
}

// GetOrCreate returns the room for id, creating it if absent. Lookups of
// existing rooms take only the read lock; the create path re-checks the map
// under the write lock so concurrent first accesses converge on a single
// instance.
func (reg *Registry) GetOrCreate(id int) *Room {
	reg.mu.RLock()
	room := reg.rooms[id]
	reg.mu.RUnlock()
	if room != nil {
		return room
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room := reg.rooms[id]; room != nil {
		return room
	}
	room = NewRoom(id, reg.buffer)
	reg.rooms[id] = room
	return room
}

// Len returns the number of rooms created so far.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
