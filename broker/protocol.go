// Defines the client-server message set: the role handshake, the add-process
// request/ack pair, and the per-tick snapshot (sim.Snapshot serialized as-is).
// Every message is one JSON text frame on the websocket.

package broker

import (
	"github.com/sched-sim/sched-sim/sim"
)

// Role tags a connection as an observer or a producer.
type Role string

const (
	// RoleRenderer receives a snapshot after every tick; read-only.
	RoleRenderer Role = "renderer"
	// RoleInjector submits add-process requests and receives acks.
	RoleInjector Role = "injector"
)

// Valid reports whether the role is one the broker accepts.
func (r Role) Valid() bool {
	return r == RoleRenderer || r == RoleInjector
}

// Handshake is the first message a client sends after connecting.
type Handshake struct {
	Role Role `json:"role"`
}

// HandshakeAck is the server's reply. On rejection (unrecognized role,
// malformed handshake) OK is false and the connection is closed.
type HandshakeAck struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// AddProcessRequest is an injector's submission. Field names and semantics
// match sim.ProcessSpec.
type AddProcessRequest struct {
	ArrivalTick int `json:"arrival_tick"`
	BurstTotal  int `json:"burst_total"`
	Priority    int `json:"priority"`
}

// Spec converts the wire request into the engine's spec type.
func (r AddProcessRequest) Spec() sim.ProcessSpec {
	return sim.ProcessSpec{
		ArrivalTick: r.ArrivalTick,
		BurstTotal:  r.BurstTotal,
		Priority:    r.Priority,
	}
}

// AddProcessAck answers one AddProcessRequest on the same connection.
type AddProcessAck struct {
	Accepted bool   `json:"accepted"`
	ID       int    `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
