package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// pingInterval is the interval at which to send pings.
	pingInterval = 15 * time.Second
	// pongWait is the duration to wait for a pong response to a ping.
	pongWait = time.Minute
	// writeWait is the per-message write deadline; a renderer that cannot
	// drain a frame within this bound is dropped rather than stalling.
	writeWait = 10 * time.Second
	// outboxSize bounds the per-renderer snapshot backlog. A full outbox
	// marks the renderer as too slow to keep, never blocks the tick loop.
	outboxSize = 16
	// maxMessageSize is the largest inbound frame the broker accepts.
	maxMessageSize = 64 * 1024
)

// Session wraps one renderer connection: a buffered outbox drained by a write
// goroutine, with ping/pong keepalive. Injector connections are handled
// synchronously by the server and do not need a Session.
type Session struct {
	ID   uuid.UUID
	log  *logrus.Entry
	conn *websocket.Conn

	outbox    chan []byte
	closeOnce sync.Once
	// Done signals the session is finished. The broker prunes the roster on it.
	Done chan struct{}
}

// NewSession wraps conn and starts its write loop.
func NewSession(conn *websocket.Conn) *Session {
	s := &Session{
		ID: uuid.New(),
		log: logrus.WithFields(logrus.Fields{
			"component":   "session",
			"remote-addr": conn.RemoteAddr().String(),
		}),
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		Done:   make(chan struct{}),
	}

	go s.runWriteLoop()
	go s.runReadLoop()

	return s
}

// Send enqueues a frame without blocking. It returns false when the session
// is finished or its outbox is full; the caller treats either as a dead
// renderer and drops it from the roster.
func (s *Session) Send(msg []byte) bool {
	select {
	case <-s.Done:
		return false
	default:
	}
	select {
	case s.outbox <- msg:
		return true
	default:
		s.log.Warn("outbox full, dropping slow renderer")
		return false
	}
}

// Close tears the connection down. Safe to call multiple times and from any
// goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.Done)
		_ = s.conn.Close()
		s.log.Debug("session closed")
	})
}

// runWriteLoop drains the outbox onto the wire, interleaving pings.
func (s *Session) runWriteLoop() {
	pinger := time.NewTicker(pingInterval)
	defer pinger.Stop()
	defer s.Close()

	for {
		select {
		case <-s.Done:
			return
		case msg := <-s.outbox:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.log.WithError(err).Debug("setting write deadline")
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.WithError(err).Debug("write failed")
				return
			}
		case <-pinger.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

// runReadLoop discards inbound frames; renderers are read-only. Its job is to
// service pongs and surface disconnects promptly.
func (s *Session) runReadLoop() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).Debug("read loop ended")
			}
			return
		}
	}
}
