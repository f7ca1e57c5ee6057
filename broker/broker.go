// The session broker: multiplexes one scheduling engine across N client
// connections. All engine mutations -- clock beats, injections, operator
// controls -- funnel through a single command loop, so every snapshot handed
// to fan-out is a completed, consistent tick result.

package broker

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sched-sim/sched-sim/sim"
)

// Broker owns the engine and the renderer roster. Network handlers never
// touch the engine directly: they call the exported methods, which execute
// inside the command loop.
type Broker struct {
	log    *logrus.Entry
	engine *sim.Engine
	clock  *sim.Clock

	commands chan func()
	done     chan struct{}

	// Loop-owned state below; touched only from Run.
	renderers []*Session // registration order
	latest    sim.Snapshot
	latestRaw []byte
	lastTick  int
}

// New creates a broker around engine. Run must be started before any other
// method is called.
func New(engine *sim.Engine) *Broker {
	b := &Broker{
		log:      logrus.WithField("component", "broker"),
		engine:   engine,
		commands: make(chan func()),
		done:     make(chan struct{}),
		lastTick: -1,
	}
	b.latest = engine.Snapshot()
	b.latestRaw = mustMarshal(b.latest)
	return b
}

// SetClock attaches the simulation clock for pause/resume control. Call
// before Run; brokers without a clock (tests) drive ticks through Step.
func (b *Broker) SetClock(clock *sim.Clock) {
	b.clock = clock
}

// Run executes the command loop until ctx is cancelled, then closes every
// session.
func (b *Broker) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			for _, s := range b.renderers {
				s.Close()
			}
			b.renderers = nil
			b.log.Info("broker stopped")
			return
		case cmd := <-b.commands:
			cmd()
		}
	}
}

// do runs fn inside the command loop and waits for it to finish.
func (b *Broker) do(fn func()) {
	reply := make(chan struct{})
	select {
	case b.commands <- func() { fn(); close(reply) }:
		<-reply
	case <-b.done:
	}
}

// Step advances the engine by one tick and fans the snapshot out. Invoked by
// the simulation clock; exported so tests can drive ticks directly.
func (b *Broker) Step() {
	b.do(func() {
		snap := b.engine.Tick()
		// A completed engine returns an unchanged snapshot; re-broadcasting
		// the same tick would break the renderers' strict tick sequence.
		if snap.Tick == b.lastTick {
			return
		}
		b.publish(snap)
	})
}

// Inject validates and forwards one add-process request to the engine.
// The new process becomes visible in the next tick's snapshot.
func (b *Broker) Inject(spec sim.ProcessSpec) (id int, err error) {
	b.do(func() {
		id, err = b.engine.AddProcess(spec)
	})
	return id, err
}

// SetPolicy switches the scheduling algorithm; only legal before the first
// dispatch. The updated snapshot is broadcast so renderers relabel promptly.
func (b *Broker) SetPolicy(name string, quantum int) (err error) {
	b.do(func() {
		var policy sim.Policy
		if policy, err = sim.NewPolicy(name, quantum); err != nil {
			return
		}
		if err = b.engine.SetPolicy(policy); err != nil {
			return
		}
		b.publish(b.engine.Snapshot())
	})
	return err
}

// Reset rewinds the simulation to tick zero, keeping the process table.
func (b *Broker) Reset() {
	b.do(func() {
		b.engine.Reset()
		b.lastTick = -1
		b.publish(b.engine.Snapshot())
	})
}

// Pause freezes the simulation clock at the next tick boundary.
func (b *Broker) Pause() {
	if b.clock != nil {
		b.clock.Pause()
	}
}

// Resume re-enables the simulation clock.
func (b *Broker) Resume() {
	if b.clock != nil {
		b.clock.Resume()
	}
}

// Paused reports the clock state; false when no clock is attached.
func (b *Broker) Paused() bool {
	return b.clock != nil && b.clock.Paused()
}

// Latest returns the most recently published snapshot.
func (b *Broker) Latest() (snap sim.Snapshot) {
	b.do(func() {
		snap = b.latest
	})
	return snap
}

// AddRenderer registers a renderer connection and primes it with the latest
// snapshot, so a mid-run client starts observing from the next tick without
// waiting for it.
func (b *Broker) AddRenderer(conn *websocket.Conn) *Session {
	s := NewSession(conn)
	b.do(func() {
		b.renderers = append(b.renderers, s)
		s.Send(b.latestRaw)
		b.log.Infof("renderer %s connected (%d total)", s.ID, len(b.renderers))
	})
	return s
}

// RendererCount returns the current roster size.
func (b *Broker) RendererCount() (n int) {
	b.do(func() {
		n = len(b.renderers)
	})
	return n
}

// publish serializes snap once and delivers the identical payload to every
// renderer in registration order. Renderers that are gone or too slow are
// pruned; delivery to one never blocks another.
func (b *Broker) publish(snap sim.Snapshot) {
	b.latest = snap
	b.latestRaw = mustMarshal(snap)
	b.lastTick = snap.Tick

	kept := b.renderers[:0]
	for _, s := range b.renderers {
		if s.Send(b.latestRaw) {
			kept = append(kept, s)
		} else {
			s.Close()
			b.log.Infof("renderer %s dropped", s.ID)
		}
	}
	b.renderers = kept
}

func mustMarshal(snap sim.Snapshot) []byte {
	raw, err := json.Marshal(snap)
	if err != nil {
		// Snapshot is a closed set of marshalable types; this cannot fail.
		logrus.Panicf("marshal snapshot: %v", err)
	}
	return raw
}
