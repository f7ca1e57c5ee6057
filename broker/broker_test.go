package broker

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sched-sim/sched-sim/sim"
)

// newTestBroker starts a broker command loop plus an HTTP server exposing it.
func newTestBroker(t *testing.T, policy sim.Policy) (*Broker, *httptest.Server) {
	t.Helper()
	engine := sim.NewEngine(policy)
	b := New(engine)

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	srv := httptest.NewServer(NewServer(b))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return b, srv
}

// wsDial connects to the test server's /ws endpoint and completes the role
// handshake, failing the test unless the ack matches wantOK.
func wsDial(t *testing.T, srv *httptest.Server, role string, wantOK bool) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"role": role}))
	var ack HandshakeAck
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, wantOK, ack.OK, "handshake ack: %+v", ack)
	return conn
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return raw
}

func TestHandshake_UnknownRoleRejected(t *testing.T) {
	_, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	conn := wsDial(t, srv, "spectator", false)
	defer conn.Close()

	// The server closes the connection after the rejection.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHandshake_MalformedJSONRejected(t *testing.T) {
	_, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var ack HandshakeAck
	require.NoError(t, conn.ReadJSON(&ack))
	assert.False(t, ack.OK)
}

func TestInjector_AcceptAndRejectOnSameConnection(t *testing.T) {
	_, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	conn := wsDial(t, srv, "injector", true)
	defer conn.Close()

	// A valid request is acknowledged with the assigned ID.
	require.NoError(t, conn.WriteJSON(AddProcessRequest{ArrivalTick: 0, BurstTotal: 3, Priority: 5}))
	var ack AddProcessAck
	require.NoError(t, conn.ReadJSON(&ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, 1, ack.ID)

	// An invalid burst is rejected with a reason; the simulation is unaffected.
	require.NoError(t, conn.WriteJSON(AddProcessRequest{ArrivalTick: 0, BurstTotal: 0, Priority: 5}))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.False(t, ack.Accepted)
	assert.Contains(t, ack.Reason, "invalid process spec")

	// The connection survives a rejection.
	require.NoError(t, conn.WriteJSON(AddProcessRequest{ArrivalTick: 0, BurstTotal: 2, Priority: 5}))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, 2, ack.ID)
}

func TestInjector_MalformedFrameClosesConnection(t *testing.T) {
	_, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	conn := wsDial(t, srv, "injector", true)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{garbage")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "protocol error must close the connection")
}

func TestRenderers_ReceiveIdenticalSnapshots(t *testing.T) {
	b, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	r1 := wsDial(t, srv, "renderer", true)
	defer r1.Close()
	r2 := wsDial(t, srv, "renderer", true)
	defer r2.Close()

	// Both are primed with the current state on connect.
	prime1, prime2 := readRaw(t, r1), readRaw(t, r2)
	assert.Equal(t, prime1, prime2, "primer payloads must be byte-identical")

	// GIVEN a process and one tick
	_, err := b.Inject(sim.ProcessSpec{ArrivalTick: 0, BurstTotal: 3, Priority: 5})
	require.NoError(t, err)
	b.Step()

	// THEN both renderers receive byte-identical tick-1 snapshots
	raw1, raw2 := readRaw(t, r1), readRaw(t, r2)
	assert.Equal(t, raw1, raw2)

	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(raw1, &snap))
	assert.Equal(t, 1, snap.Tick)
	require.NotNil(t, snap.RunningID)
	assert.Equal(t, 1, *snap.RunningID)
}

func TestRenderers_DisconnectDoesNotStallOthers(t *testing.T) {
	b, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	r1 := wsDial(t, srv, "renderer", true)
	r2 := wsDial(t, srv, "renderer", true)
	defer r2.Close()
	readRaw(t, r1)
	readRaw(t, r2)

	_, err := b.Inject(sim.ProcessSpec{ArrivalTick: 0, BurstTotal: 50, Priority: 5})
	require.NoError(t, err)

	// WHEN one renderer disconnects mid-run
	require.NoError(t, r1.Close())

	// THEN the surviving renderer keeps receiving every tick in order
	lastTick := 0
	for i := 0; i < 5; i++ {
		b.Step()
		var snap sim.Snapshot
		require.NoError(t, json.Unmarshal(readRaw(t, r2), &snap))
		assert.Equal(t, lastTick+1, snap.Tick, "ticks must be sequential with no gaps")
		lastTick = snap.Tick
	}

	// AND the broker eventually prunes the dead session. Keep draining r2 so
	// only the closed session's delivery fails.
	assert.Eventually(t, func() bool {
		b.Step()
		_ = r2.SetReadDeadline(time.Now().Add(time.Second))
		_, _, _ = r2.ReadMessage()
		return b.RendererCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBroker_StepAfterCompletion_NoDuplicateBroadcast(t *testing.T) {
	b, srv := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	r := wsDial(t, srv, "renderer", true)
	defer r.Close()
	readRaw(t, r) // primer

	_, err := b.Inject(sim.ProcessSpec{ArrivalTick: 0, BurstTotal: 1, Priority: 5})
	require.NoError(t, err)

	b.Step() // completes the only process
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(readRaw(t, r), &snap))
	require.True(t, snap.Completed)

	// WHEN the clock keeps beating after completion
	b.Step()
	b.Step()

	// THEN no duplicate-tick snapshots are broadcast
	require.NoError(t, r.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = r.ReadMessage()
	assert.Error(t, err, "expected read timeout, got a frame")
}

func TestBroker_InjectVisibleNextTick(t *testing.T) {
	b, _ := newTestBroker(t, sim.Policy{Kind: sim.PolicyFCFS})

	id, err := b.Inject(sim.ProcessSpec{ArrivalTick: 0, BurstTotal: 2, Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	b.Step()
	snap := b.Latest()
	require.Len(t, snap.Processes, 1)
	assert.Equal(t, sim.StateRunning, snap.Processes[0].State)
}
