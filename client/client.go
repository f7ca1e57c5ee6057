// Client-side websocket plumbing shared by the renderer and injector
// commands: dial the broker, declare a role, and check the handshake ack.

package client

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/sched-sim/sched-sim/broker"
)

// dial connects to the broker's /ws endpoint and completes the role
// handshake. The caller owns the returned connection.
func dial(ctx context.Context, url string, role broker.Role) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	if err := conn.WriteJSON(broker.Handshake{Role: role}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sending handshake: %w", err)
	}
	var ack broker.HandshakeAck
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading handshake ack: %w", err)
	}
	if !ack.OK {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake rejected: %s", ack.Reason)
	}
	return conn, nil
}
