// Package server runs chat sessions: the paired inbound/outbound pumps
// serving one WebSocket connection, with symmetric teardown when either
// half stops.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 54 * time.Second
)

// errSessionDone marks a pump that stopped for a routine reason, such as a
// client disconnect or a sibling pump winding the session down. Returning
// it (rather than nil) from a pump guarantees the errgroup context is
// canceled so the other pump stops too.
var errSessionDone = errors.New("session done")

// ChatSession serves one chat connection: an inbound pump that validates
// client frames and publishes them into the room, and an outbound pump that
// delivers every room envelope back to the client. The pumps run
// concurrently; whichever stops first tears down the other.
type ChatSession struct {
	id       string
	conn     *websocket.Conn
	room     *Room
	views    *ViewCounter
	userName string
	addr     string
	limiter  *rateLimiter
}

// NewChatSession resolves the room for roomID through the service registry,
// creating it on first use, and prepares a session for conn. Run starts the
// pumps.
func NewChatSession(s *ChatService, conn *websocket.Conn, roomID int, userName, addr string) *ChatSession {
	cfg := currentConfig()
	conn.SetReadLimit(cfg.MaxMessageSize)

	return &ChatSession{
		id:       uuid.NewString(),
		conn:     conn,
		room:     s.rooms.GetOrCreate(roomID),
		views:    s.views,
		userName: userName,
		addr:     addr,
		limiter:  newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
	}
}

// Run pumps until the client disconnects or either half fails, then closes
// the connection. Errors never escape the session; a failed session leaves
// its room and every other session untouched.
func (cs *ChatSession) Run() {
	defer func() {
		// Backstop for pump exits that never reach the keepalive's
		// ctx.Done close, such as a failed ping write.
		if err := cs.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Chat session %s: error closing connection: %v", cs.id, err)
		}
	}()

	log.Printf("Chat session %s: %s joined room %d from %s", cs.id, cs.userName, cs.room.ID(), cs.addr)

	sub := cs.room.Subscribe()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(cs.inbound)
	g.Go(func() error { return cs.outbound(ctx, sub) })
	g.Go(func() error { return cs.keepalive(ctx) })

	if err := g.Wait(); err != nil &&
		!errors.Is(err, errSessionDone) && !errors.Is(err, context.Canceled) {
		log.Printf("Chat session %s: ended with error: %v", cs.id, err)
	}

	log.Printf("Chat session %s: %s left room %d", cs.id, cs.userName, cs.room.ID())
}

// inbound reads client frames, drops anything malformed, oversized, or over
// the rate limit, and publishes the rest into the room. It returns on the
// first read error, which includes the keepalive pump closing the
// connection during teardown.
func (cs *ChatSession) inbound() error {
	cs.setupReadDeadline()

	for {
		msgType, raw, err := cs.conn.ReadMessage()
		if err != nil {
			cs.logReadError(err)
			return errSessionDone
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if cs.limiter != nil && !cs.limiter.allow() {
			log.Printf("Chat session %s: rate limit exceeded for %s; discarding frame", cs.id, cs.addr)
			continue
		}

		env, ok := cs.parseInput(raw)
		if !ok {
			continue
		}
		cs.room.Publish(env)
	}
}

// outbound receives envelopes for this session's subscription, serializes
// them, and writes them to the client, counting one view per successful
// write. A lagged subscription skips ahead silently.
func (cs *ChatSession) outbound(ctx context.Context, sub *Subscription) error {
	for {
		env, err := sub.Receive(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrLagged):
			log.Printf("Chat session %s: lagged behind room %d; skipping ahead", cs.id, cs.room.ID())
			continue
		case errors.Is(err, ErrRoomClosed):
			return errSessionDone
		default:
			// Context canceled by the sibling pump.
			return err
		}

		payload, err := json.Marshal(env)
		if err != nil {
			log.Printf("Chat session %s: error encoding envelope: %v", cs.id, err)
			continue
		}

		if err := cs.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			log.Printf("Chat session %s: error setting write deadline for %s: %v", cs.id, cs.addr, err)
			return errSessionDone
		}
		if err := cs.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Chat session %s: error writing to %s: %v", cs.id, cs.addr, err)
			}
			return errSessionDone
		}
		cs.views.Increment()
	}
}

// keepalive pings the client periodically so its pongs refresh the read
// deadline, and closes the connection once the session context is canceled
// to unblock the inbound read.
func (cs *ChatSession) keepalive(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := cs.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Chat session %s: error closing connection: %v", cs.id, err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := cs.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Chat session %s: error writing ping to %s: %v", cs.id, cs.addr, err)
				}
				return errSessionDone
			}
		}
	}
}

// parseInput decodes a raw text frame into an envelope attributed to this
// session's user. Malformed JSON, a missing message field, and a message
// over maxMessageChars characters all drop the frame without closing the
// connection; the client gets no rejection reply.
func (cs *ChatSession) parseInput(raw []byte) (Envelope, bool) {
	var input ChatInput
	if err := json.Unmarshal(raw, &input); err != nil {
		log.Printf("Chat session %s: invalid frame from %s: %v", cs.id, cs.addr, err)
		return Envelope{}, false
	}
	if input.Message == nil {
		log.Printf("Chat session %s: frame from %s has no message field; discarding", cs.id, cs.addr)
		return Envelope{}, false
	}
	if utf8.RuneCountInString(*input.Message) > maxMessageChars {
		log.Printf("Chat session %s: message from %s exceeds %d characters; discarding", cs.id, cs.addr, maxMessageChars)
		return Envelope{}, false
	}
	return Envelope{User: cs.userName, Message: *input.Message}, true
}

// setupReadDeadline configures the read deadline and pong handler for the
// connection.
func (cs *ChatSession) setupReadDeadline() {
	if err := cs.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		log.Printf("Chat session %s: error setting read deadline for %s: %v", cs.id, cs.addr, err)
	}
	cs.conn.SetPongHandler(func(string) error {
		return cs.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
}

// logReadError logs a read failure with severity matched to how expected
// the condition is.
func (cs *ChatSession) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Chat session %s: frame from %s exceeded the read limit", cs.id, cs.addr)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Chat session %s: client %s disconnected: %v", cs.id, cs.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Printf("Chat session %s: connection %s closed: %v", cs.id, cs.addr, err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Chat session %s: unexpected WebSocket error from %s: %v", cs.id, cs.addr, err)
	default:
		log.Printf("Chat session %s: read error from %s: %v", cs.id, cs.addr, err)
	}
}
