// engine.go
//
// The scheduling engine: owns the process table, ready queue, running slot,
// and tick counter, and applies the active policy on every tick.

package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrPolicyLocked rejects a policy change after scheduling has started.
// A run cannot change algorithm mid-flight: fairness comparisons between
// partially-serviced processes would be undefined across policies.
var ErrPolicyLocked = errors.New("policy locked")

// Engine is the core object that owns the simulation state: the process
// table, the ready queue, the running slot, and the tick counter.
//
// Engine is NOT safe for concurrent use. All mutations (ticks, injections,
// policy changes, resets) must be serialized through a single owner; the
// broker's command loop is that owner in the server process.
type Engine struct {
	policy Policy
	// tick is the number of completed ticks. Work performed during a call to
	// Tick is charged to the pre-advance value; snapshots and finish times
	// report the post-advance value.
	tick   int
	nextID int

	procs []*Process // insertion order = arrival order
	byID  map[int]*Process

	ready   *ReadyQueue
	running *Process
	// quantumUsed counts consecutive ticks held by the running process,
	// reset on every dispatch. Only consulted under Round Robin.
	quantumUsed int

	started         bool // a process has reached Running; policy is locked
	contextSwitches int
	busyTicks       int
	gantt           []GanttSpan
}

// NewEngine creates an empty engine with the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{
		policy: policy,
		nextID: 1,
		byID:   make(map[int]*Process),
		ready:  &ReadyQueue{},
	}
}

// Policy returns the active scheduling policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// CurrentTick returns the number of completed ticks.
func (e *Engine) CurrentTick() int {
	return e.tick
}

// AddProcess validates spec, creates a Pending process, and returns its ID.
// The process becomes visible in the next snapshot and is promoted to Ready
// once the tick counter reaches its arrival tick.
func (e *Engine) AddProcess(spec ProcessSpec) (int, error) {
	if err := spec.Validate(e.tick); err != nil {
		return 0, err
	}
	p := newProcess(e.nextID, spec)
	e.nextID++
	e.procs = append(e.procs, p)
	e.byID[p.ID] = p
	logrus.Debugf("engine: added %s", p)
	return p.ID, nil
}

// SetPolicy replaces the scheduling policy. Legal only before any process has
// reached Running; afterwards it fails with ErrPolicyLocked and leaves state
// unchanged.
func (e *Engine) SetPolicy(policy Policy) error {
	if e.started {
		return fmt.Errorf("%w: scheduling already started under %s", ErrPolicyLocked, e.policy.Kind)
	}
	e.policy = policy
	return nil
}

// Completed reports whether every known process is Finished. An engine with
// no processes is complete: ticks are no-ops until the first injection.
func (e *Engine) Completed() bool {
	for _, p := range e.procs {
		if p.State != StateFinished {
			return false
		}
	}
	return true
}

// Tick advances the simulation by one logical tick: promote arrivals, apply
// the policy's selection and preemption rule, charge one unit to the running
// process, and retire it if its work is done. Returns the snapshot of the
// state after these steps.
//
// Once the engine is complete, Tick is an idempotent no-op returning an
// unchanged snapshot.
func (e *Engine) Tick() Snapshot {
	if e.Completed() {
		return e.Snapshot()
	}

	now := e.tick

	// (a) Promote arrivals. Insertion order is ID order, so simultaneous
	// arrivals enqueue with the smaller ID first.
	for _, p := range e.procs {
		if p.State == StatePending && p.ArrivalTick <= now {
			p.State = StateReady
			e.ready.Enqueue(p)
			logrus.Debugf("engine: P%d ready at tick %d", p.ID, now)
		}
	}

	// (b) Selection / preemption.
	e.dispatch(now)

	// (c) Charge one unit to the running process.
	if e.running != nil {
		p := e.running
		if p.FirstRunTick < 0 {
			p.FirstRunTick = now
		}
		p.Remaining--
		e.quantumUsed++
		e.busyTicks++
		e.recordGantt(p.ID, now)

		// (d) Retire on completion.
		if p.Remaining == 0 {
			p.State = StateFinished
			p.FinishTick = now + 1
			e.running = nil
			logrus.Debugf("engine: P%d finished at tick %d", p.ID, p.FinishTick)
		}
	} else {
		e.recordGantt(-1, now)
	}

	for _, p := range e.procs {
		if p.State == StateReady {
			p.WaitingTicks++
		}
	}

	e.tick = now + 1
	return e.Snapshot()
}

// dispatch applies the active policy's per-tick rule: quantum expiry for RR,
// arrival preemption for SRTF, and head selection when the CPU is free.
func (e *Engine) dispatch(now int) {
	switch e.policy.Kind {
	case PolicyRR:
		if e.running != nil && e.quantumUsed >= e.policy.Quantum {
			e.preempt(now)
		}
	case PolicySRTF:
		e.ready.Reorder(e.policy.order)
		if e.policy.shouldPreempt(e.running, e.ready.Peek()) {
			e.preempt(now)
			// The preempted process joined the ready queue; restore
			// shortest-remaining order before selection.
			e.ready.Reorder(e.policy.order)
		}
	default:
		e.ready.Reorder(e.policy.order)
	}

	if e.running == nil && e.ready.Len() > 0 {
		p := e.ready.Dequeue()
		p.State = StateRunning
		e.running = p
		e.quantumUsed = 0
		e.started = true
		e.contextSwitches++
		logrus.Debugf("engine: dispatched P%d at tick %d", p.ID, now)
	}
}

// preempt returns the running process to the tail of the ready queue.
func (e *Engine) preempt(now int) {
	p := e.running
	p.State = StateReady
	e.ready.Enqueue(p)
	e.running = nil
	logrus.Debugf("engine: preempted P%d at tick %d", p.ID, now)
}

// recordGantt charges tick `now` to process id (-1 for idle), coalescing
// with the previous span when contiguous and owned by the same id.
func (e *Engine) recordGantt(id, now int) {
	if n := len(e.gantt); n > 0 && e.gantt[n-1].ID == id && e.gantt[n-1].End == now {
		e.gantt[n-1].End = now + 1
		return
	}
	e.gantt = append(e.gantt, GanttSpan{ID: id, Start: now, End: now + 1})
}

// Reset restores every process to Pending and the tick counter to zero.
// The policy is unlocked again until the next dispatch.
func (e *Engine) Reset() {
	e.tick = 0
	e.running = nil
	e.quantumUsed = 0
	e.started = false
	e.contextSwitches = 0
	e.busyTicks = 0
	e.gantt = nil
	e.ready.Clear()
	for _, p := range e.procs {
		p.reset()
	}
	logrus.Info("engine: reset to tick 0")
}

// Snapshot builds an immutable copy of the full state. The result shares no
// memory with live engine state.
func (e *Engine) Snapshot() Snapshot {
	views := make([]ProcessView, 0, len(e.procs))
	for _, p := range e.procs {
		views = append(views, viewOf(p))
	}
	var runningID *int
	if e.running != nil {
		id := e.running.ID
		runningID = &id
	}
	gantt := make([]GanttSpan, len(e.gantt))
	copy(gantt, e.gantt)

	return Snapshot{
		Tick:            e.tick,
		Policy:          e.policy.Kind,
		Processes:       views,
		RunningID:       runningID,
		Completed:       e.Completed(),
		ContextSwitches: e.contextSwitches,
		Gantt:           gantt,
		Stats:           computeStats(e.procs, e.tick, e.busyTicks),
	}
}
