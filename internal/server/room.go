// Package server implements rooms: bounded broadcast channels that fan
// every published envelope out to all current subscribers.
package server

import (
	"context"
	"errors"
	"sync"
)

// defaultRoomBuffer is the number of envelopes a room retains for
// subscribers that have not caught up yet.
const defaultRoomBuffer = 100

// ErrLagged is returned by Receive when a subscription fell more than the
// room's buffer capacity behind. The cursor has already been advanced to
// the oldest retained envelope; callers should treat it as "skip ahead and
// continue", not as a failure.
var ErrLagged = errors.New("subscription lagged behind room buffer")

// ErrRoomClosed is returned by Receive once a closed room has no buffered
// envelopes left for the subscription. Rooms are never closed in normal
// operation; Close exists for tests and controlled teardown.
var ErrRoomClosed = errors.New("room closed")

// Room is the fan-out channel shared by every connection that joined the
// same room id. Publishing never blocks: the room keeps a bounded ring of
// recent envelopes and slow subscribers lose messages instead of applying
// backpressure to publishers.
type Room struct {
	id int

	mu       sync.Mutex
	buf      []Envelope // retained envelopes, oldest first
	first    uint64     // sequence number of buf[0]
	next     uint64     // sequence number the next publish will take
	capacity int
	closed   bool
	wake     chan struct{} // closed and replaced on every publish
}

// NewRoom creates an empty room whose buffer retains at most capacity
// envelopes. A non-positive capacity falls back to the default.
func NewRoom(id, capacity int) *Room {
	if capacity <= 0 {
		capacity = defaultRoomBuffer
	}
	return &Room{
		id:       id,
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

// ID returns the room identifier.
func (r *Room) ID() int {
	return r.id
}

// Publish appends env to the buffer and wakes every blocked subscription.
// It never blocks and never fails; with no subscribers the envelope simply
// ages out of the buffer. Publishing to a closed room is a no-op.
func (r *Room) Publish(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.buf = append(r.buf, env)
	r.next++
	if drop := len(r.buf) - r.capacity; drop > 0 {
		r.buf = append(r.buf[:0], r.buf[drop:]...)
		r.first += uint64(drop)
	}

	close(r.wake)
	r.wake = make(chan struct{})
}

// Subscribe returns a cursor that observes every envelope published after
// this call returns. It never sees older buffered envelopes.
func (r *Room) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Subscription{room: r, cursor: r.next}
}

// Close marks the room closed and wakes blocked subscriptions so they can
// drain the buffer and observe ErrRoomClosed.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.wake)
}

// Subscription is a private receive cursor into a room's buffer. It must
// not be shared between goroutines.
type Subscription struct {
	room   *Room
	cursor uint64
}

// Receive blocks until the next envelope is available and returns it.
// If the subscription fell behind the buffer it returns ErrLagged after
// advancing to the oldest retained envelope, and if ctx is canceled while
// waiting it returns ctx.Err(). All subscribers that never lag observe
// envelopes in the same order they were published.
func (s *Subscription) Receive(ctx context.Context) (Envelope, error) {
	r := s.room
	for {
		r.mu.Lock()
		if s.cursor < r.first {
			s.cursor = r.first
			r.mu.Unlock()
			return Envelope{}, ErrLagged
		}
		if s.cursor < r.next {
			env := r.buf[s.cursor-r.first]
			s.cursor++
			r.mu.Unlock()
			return env, nil
		}
		if r.closed {
			r.mu.Unlock()
			return Envelope{}, ErrRoomClosed
		}
		wake := r.wake
		r.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		}
	}
}
