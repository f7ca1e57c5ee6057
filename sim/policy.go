package sim

import (
	"fmt"
	"sort"
)

// PolicyKind names one of the classic scheduling algorithms.
type PolicyKind string

const (
	PolicyFCFS     PolicyKind = "FCFS"     // non-preemptive, arrival order
	PolicySJF      PolicyKind = "SJF"      // non-preemptive, shortest remaining first
	PolicySRTF     PolicyKind = "SRTF"     // preemptive SJF (shortest remaining time first)
	PolicyRR       PolicyKind = "RR"       // preemptive, fixed quantum rotation
	PolicyPriority PolicyKind = "PRIORITY" // non-preemptive, lowest priority value first
)

// DefaultQuantum is the Round Robin quantum used when none is configured.
const DefaultQuantum = 2

// Policy is the tagged variant dispatched by the engine each tick.
// Only Round Robin reads Quantum.
type Policy struct {
	Kind    PolicyKind
	Quantum int
}

// NewPolicy creates a Policy by name. Valid names: "FCFS", "SJF", "SRTF",
// "RR", "PRIORITY" (case-sensitive, matching the wire protocol). quantum is
// only consulted for RR; 0 selects DefaultQuantum.
func NewPolicy(name string, quantum int) (Policy, error) {
	kind := PolicyKind(name)
	switch kind {
	case PolicyFCFS, PolicySJF, PolicySRTF, PolicyPriority:
		return Policy{Kind: kind}, nil
	case PolicyRR:
		if quantum == 0 {
			quantum = DefaultQuantum
		}
		if quantum < 0 {
			return Policy{}, fmt.Errorf("quantum must be positive, got %d", quantum)
		}
		return Policy{Kind: PolicyRR, Quantum: quantum}, nil
	default:
		return Policy{}, fmt.Errorf("unknown policy %q", name)
	}
}

// Preemptive reports whether the policy may interrupt a running process.
func (p Policy) Preemptive() bool {
	return p.Kind == PolicySRTF || p.Kind == PolicyRR
}

// order sorts ready processes into selection order for the comparator-driven
// policies. Round Robin is excluded: its order is the FIFO of most recent
// assignment, which enqueue order already encodes and a sort over static keys
// cannot express.
func (p Policy) order(procs []*Process) {
	switch p.Kind {
	case PolicyFCFS:
		sort.SliceStable(procs, func(i, j int) bool {
			if procs[i].ArrivalTick != procs[j].ArrivalTick {
				return procs[i].ArrivalTick < procs[j].ArrivalTick
			}
			return procs[i].ID < procs[j].ID
		})
	case PolicySJF, PolicySRTF:
		sort.SliceStable(procs, func(i, j int) bool {
			if procs[i].Remaining != procs[j].Remaining {
				return procs[i].Remaining < procs[j].Remaining
			}
			return procs[i].ID < procs[j].ID
		})
	case PolicyPriority:
		sort.SliceStable(procs, func(i, j int) bool {
			if procs[i].Priority != procs[j].Priority {
				return procs[i].Priority < procs[j].Priority
			}
			return procs[i].ID < procs[j].ID
		})
	case PolicyRR:
		// FIFO order preserved from enqueue order
	}
}

// shouldPreempt reports whether candidate must take the CPU from running.
// Only SRTF preempts on arrival: a strictly smaller remaining time wins,
// and on ties the running process keeps the CPU.
func (p Policy) shouldPreempt(running, candidate *Process) bool {
	if p.Kind != PolicySRTF || running == nil || candidate == nil {
		return false
	}
	return candidate.Remaining < running.Remaining
}
