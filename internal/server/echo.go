// Package server runs echo sessions for the handshake-gated ping/pong
// protocol.
package server

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EchoSession is the per-connection state machine for the ping/pong
// protocol: a connection must send a "serve" frame before "ping" frames are
// answered with "pong". Every other frame is ignored, and there is no
// in-protocol close; the session ends when the transport does.
type EchoSession struct {
	id     string
	conn   *websocket.Conn
	addr   string
	served bool
}

// NewEchoSession prepares an echo session for conn in the unserved state.
func NewEchoSession(conn *websocket.Conn, addr string) *EchoSession {
	return &EchoSession{
		id:   uuid.NewString(),
		conn: conn,
		addr: addr,
	}
}

// Run reads frames until the client disconnects. Repeating "serve" is
// harmless, and a "ping" before the first "serve" gets no reply of any
// kind.
func (es *EchoSession) Run() {
	defer func() {
		if err := es.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Echo session %s: error closing connection: %v", es.id, err)
		}
	}()

	log.Printf("Echo session %s: connected from %s", es.id, es.addr)

	for {
		msgType, raw, err := es.conn.ReadMessage()
		if err != nil {
			if !isExpectedCloseError(err) && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("Echo session %s: read error from %s: %v", es.id, es.addr, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		switch string(raw) {
		case "serve":
			es.served = true
		case "ping":
			if !es.served {
				continue
			}
			if !es.writePong() {
				return
			}
		}
	}
}

// writePong replies to a ping and reports whether the session can continue.
func (es *EchoSession) writePong() bool {
	if err := es.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		log.Printf("Echo session %s: error setting write deadline for %s: %v", es.id, es.addr, err)
		return false
	}
	if err := es.conn.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Echo session %s: error writing pong to %s: %v", es.id, es.addr, err)
		}
		return false
	}
	return true
}
