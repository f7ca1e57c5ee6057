package broker

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sched-sim/sched-sim/sim"
)

// handshakeWait bounds how long a fresh connection may take to declare its role.
const handshakeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	// The simulator has no authentication; any origin may observe or inject.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server exposes the broker over HTTP: the websocket endpoint for renderer
// and injector clients, plus a small operator surface for controls that the
// original keyboard bindings covered (pause, resume, reset, policy).
type Server struct {
	router chi.Router
	log    *logrus.Entry
	broker *Broker
}

// NewServer creates a Server with all routes registered.
func NewServer(b *Broker) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    logrus.WithField("component", "server"),
		broker: b,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/ws", s.handleWS)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/reset", s.handleReset)
		r.Put("/policy", s.handlePolicy)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.broker.Latest())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.broker.Pause()
	respondJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.broker.Resume()
	respondJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.broker.Reset()
	respondJSON(w, http.StatusOK, s.broker.Latest())
}

type policyRequest struct {
	Policy  string `json:"policy"`
	Quantum int    `json:"quantum"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed policy request"})
		return
	}
	if err := s.broker.SetPolicy(req.Policy, req.Quantum); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sim.ErrPolicyLocked) {
			status = http.StatusConflict
		}
		respondJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"policy": req.Policy})
}

// handleWS upgrades the connection, performs the role handshake, and hands
// the socket to the renderer or injector path. Handshake failures answer
// {ok:false} and close; they never reach the engine.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("upgrade failed")
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		s.log.WithError(err).Debug("handshake read failed")
		_ = conn.Close()
		return
	}

	var hs Handshake
	if err := json.Unmarshal(raw, &hs); err != nil || !hs.Role.Valid() {
		s.rejectHandshake(conn, "role must be \"renderer\" or \"injector\"")
		return
	}
	if err := conn.WriteJSON(HandshakeAck{OK: true}); err != nil {
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch hs.Role {
	case RoleRenderer:
		// Session goroutines own the connection from here on; the broker
		// prunes it when it dies or falls behind.
		s.broker.AddRenderer(conn)
	case RoleInjector:
		go s.serveInjector(conn)
	}
}

func (s *Server) rejectHandshake(conn *websocket.Conn, reason string) {
	_ = conn.WriteJSON(HandshakeAck{OK: false, Reason: reason})
	_ = conn.Close()
}

// serveInjector reads add-process requests and answers each with an ack on
// the same connection. A malformed frame is a protocol error: the connection
// closes, the simulation is untouched. A rejected spec keeps the connection.
func (s *Server) serveInjector(conn *websocket.Conn) {
	log := s.log.WithField("injector", conn.RemoteAddr().String())
	defer func() {
		_ = conn.Close()
		log.Info("injector disconnected")
	}()
	log.Info("injector connected")

	conn.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req AddProcessRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			log.WithError(err).Warn("malformed add-process request, closing")
			return
		}

		ack := AddProcessAck{Accepted: true}
		if id, err := s.broker.Inject(req.Spec()); err != nil {
			ack = AddProcessAck{Accepted: false, Reason: err.Error()}
		} else {
			ack.ID = id
		}
		if err := conn.WriteJSON(ack); err != nil {
			return
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
