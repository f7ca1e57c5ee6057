// Defines the Process struct that models one schedulable unit in the simulation.
// Tracks arrival, burst, remaining work, priority, and lifecycle timestamps.

package sim

import (
	"errors"
	"fmt"
)

// ProcessState represents the lifecycle state of a process.
//
// Allowed transitions:
//
//	Pending -> Ready     once current tick reaches the arrival tick
//	Ready   -> Running   through policy selection only
//	Running -> Ready     under preemption (quantum expiry, shorter arrival)
//	Running -> Finished  when remaining work reaches zero
type ProcessState string

const (
	StatePending  ProcessState = "Pending"
	StateReady    ProcessState = "Ready"
	StateRunning  ProcessState = "Running"
	StateFinished ProcessState = "Finished"
)

// ErrInvalidProcessSpec rejects malformed add-process requests: a non-positive
// burst, or an arrival tick already in the past. Late arrivals are rejected
// rather than back-dated.
var ErrInvalidProcessSpec = errors.New("invalid process spec")

// ProcessSpec is the caller-supplied part of a process. The engine assigns the
// ID and owns everything else.
type ProcessSpec struct {
	ArrivalTick int `json:"arrival_tick"`
	BurstTotal  int `json:"burst_total"`
	Priority    int `json:"priority"`
}

// Validate checks the spec against the engine's current tick.
func (s ProcessSpec) Validate(currentTick int) error {
	if s.BurstTotal <= 0 {
		return fmt.Errorf("%w: burst_total must be positive, got %d", ErrInvalidProcessSpec, s.BurstTotal)
	}
	if s.ArrivalTick < currentTick {
		return fmt.Errorf("%w: arrival_tick %d is before current tick %d", ErrInvalidProcessSpec, s.ArrivalTick, currentTick)
	}
	return nil
}

// Process models a single process's lifecycle in the simulation.
// All fields are owned and mutated exclusively by the Engine.
type Process struct {
	ID          int // Unique, monotonically assigned at creation
	ArrivalTick int // Tick at which the process becomes eligible for the ready queue
	BurstTotal  int // Total CPU ticks required
	Remaining   int // CPU ticks still needed; 0 <= Remaining <= BurstTotal
	Priority    int // Lower value = higher priority (Priority policy only)

	State      ProcessState
	FinishTick int // Tick after the last unit was consumed; -1 until finished

	// Timing bookkeeping for statistics.
	FirstRunTick int // Tick of the first unit consumed; -1 until first dispatch
	WaitingTicks int // Ticks spent in Ready while another process held the CPU
}

// newProcess creates a Pending process from a validated spec.
func newProcess(id int, spec ProcessSpec) *Process {
	return &Process{
		ID:           id,
		ArrivalTick:  spec.ArrivalTick,
		BurstTotal:   spec.BurstTotal,
		Remaining:    spec.BurstTotal,
		Priority:     spec.Priority,
		State:        StatePending,
		FinishTick:   -1,
		FirstRunTick: -1,
	}
}

// TurnaroundTicks returns finish - arrival, or 0 if the process has not finished.
func (p *Process) TurnaroundTicks() int {
	if p.State != StateFinished {
		return 0
	}
	return p.FinishTick - p.ArrivalTick
}

// ResponseTicks returns the delay between arrival and first dispatch,
// or -1 if the process has never run.
func (p *Process) ResponseTicks() int {
	if p.FirstRunTick < 0 {
		return -1
	}
	return p.FirstRunTick - p.ArrivalTick
}

// reset restores the process to its initial Pending state for re-simulation.
func (p *Process) reset() {
	p.Remaining = p.BurstTotal
	p.State = StatePending
	p.FinishTick = -1
	p.FirstRunTick = -1
	p.WaitingTicks = 0
}

// This method returns a human-readable string representation of a Process.
func (p Process) String() string {
	return fmt.Sprintf("Process: (ID: %d, State: %s, Remaining: %d/%d, ArrivalTick: %d)",
		p.ID, p.State, p.Remaining, p.BurstTotal, p.ArrivalTick)
}
