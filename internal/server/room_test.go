package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestRoomDeliversInOrder verifies that a subscriber observes envelopes in
// the order they were published.
func TestRoomDeliversInOrder(t *testing.T) {
	room := NewRoom(1, 10)
	sub := room.Subscribe()

	for i := 0; i < 5; i++ {
		room.Publish(Envelope{User: "alice", Message: fmt.Sprintf("msg-%d", i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		env, err := sub.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive %d failed: %v", i, err)
		}
		if want := fmt.Sprintf("msg-%d", i); env.Message != want {
			t.Errorf("Expected message %q, got %q", want, env.Message)
		}
		if env.User != "alice" {
			t.Errorf("Expected user %q, got %q", "alice", env.User)
		}
	}
}

// TestSubscribeSeesOnlyLaterEnvelopes verifies that a fresh subscription
// does not observe envelopes published before it was created.
func TestSubscribeSeesOnlyLaterEnvelopes(t *testing.T) {
	room := NewRoom(1, 10)
	room.Publish(Envelope{User: "alice", Message: "before"})
	room.Publish(Envelope{User: "alice", Message: "also before"})

	sub := room.Subscribe()
	room.Publish(Envelope{User: "bob", Message: "after"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env, err := sub.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if env.Message != "after" {
		t.Errorf("Expected %q, got %q", "after", env.Message)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	if _, err := sub.Receive(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded waiting for absent envelope, got %v", err)
	}
}

// TestRoomLagSkipsToOldestRetained verifies that a subscriber that fell
// more than the buffer capacity behind gets ErrLagged once and then resumes
// from the oldest retained envelope.
func TestRoomLagSkipsToOldestRetained(t *testing.T) {
	room := NewRoom(1, 4)
	sub := room.Subscribe()

	for i := 0; i < 10; i++ {
		room.Publish(Envelope{User: "alice", Message: fmt.Sprintf("msg-%d", i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := sub.Receive(ctx); !errors.Is(err, ErrLagged) {
		t.Fatalf("Expected ErrLagged, got %v", err)
	}

	// The buffer retains the last 4 envelopes.
	for i := 6; i < 10; i++ {
		env, err := sub.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive after lag failed: %v", err)
		}
		if want := fmt.Sprintf("msg-%d", i); env.Message != want {
			t.Errorf("Expected message %q, got %q", want, env.Message)
		}
	}
}

// TestPublishNeverBlocksWithoutSubscribers verifies that publishing is
// unconditional: envelopes beyond the capacity simply age out of the buffer.
func TestPublishNeverBlocksWithoutSubscribers(t *testing.T) {
	room := NewRoom(1, 2)

	for i := 0; i < 100; i++ {
		room.Publish(Envelope{User: "alice", Message: fmt.Sprintf("msg-%d", i)})
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.buf) != 2 {
		t.Errorf("Expected buffer length 2, got %d", len(room.buf))
	}
	if room.first != 98 {
		t.Errorf("Expected oldest retained sequence 98, got %d", room.first)
	}
	if room.next != 100 {
		t.Errorf("Expected next sequence 100, got %d", room.next)
	}
}

// TestReceiveUnblocksOnContextCancel verifies that a blocked Receive
// returns promptly when its context is canceled, without affecting the room.
func TestReceiveUnblocksOnContextCancel(t *testing.T) {
	room := NewRoom(1, 10)
	sub := room.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Receive(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after context cancellation")
	}

	// The room must still accept publishes and new subscriptions.
	sub2 := room.Subscribe()
	room.Publish(Envelope{User: "bob", Message: "still alive"})

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	if env, err := sub2.Receive(recvCtx); err != nil || env.Message != "still alive" {
		t.Errorf("Room unusable after canceled receive: env=%v err=%v", env, err)
	}
}

// TestConcurrentPublishersAllDelivered verifies that envelopes from
// concurrent publishers are all delivered exactly once to a subscriber
// within the buffer capacity.
func TestConcurrentPublishersAllDelivered(t *testing.T) {
	const publishers = 4
	const perPublisher = 25

	room := NewRoom(1, publishers*perPublisher)
	sub := room.Subscribe()

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", p)
			for i := 0; i < perPublisher; i++ {
				room.Publish(Envelope{User: user, Message: fmt.Sprintf("msg-%d", i)})
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	counts := make(map[string]int)
	for i := 0; i < publishers*perPublisher; i++ {
		env, err := sub.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive %d failed: %v", i, err)
		}
		counts[env.User]++
	}

	for p := 0; p < publishers; p++ {
		user := fmt.Sprintf("user-%d", p)
		if counts[user] != perPublisher {
			t.Errorf("Expected %d envelopes from %s, got %d", perPublisher, user, counts[user])
		}
	}
}

// TestClosedRoomDrainsThenReportsClosed verifies that a closed room lets
// subscribers drain buffered envelopes before returning ErrRoomClosed.
func TestClosedRoomDrainsThenReportsClosed(t *testing.T) {
	room := NewRoom(1, 10)
	sub := room.Subscribe()

	room.Publish(Envelope{User: "alice", Message: "one"})
	room.Publish(Envelope{User: "alice", Message: "two"})
	room.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, want := range []string{"one", "two"} {
		env, err := sub.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if env.Message != want {
			t.Errorf("Expected %q, got %q", want, env.Message)
		}
	}

	if _, err := sub.Receive(ctx); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}

	// Publishing to a closed room is a silent no-op.
	room.Publish(Envelope{User: "bob", Message: "ignored"})
	if _, err := sub.Receive(ctx); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed after publish to closed room, got %v", err)
	}
}
