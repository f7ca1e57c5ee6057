package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sched-sim/sched-sim/sim"
)

func intPtr(v int) *int { return &v }

func TestFormatSnapshot_RunningProcess(t *testing.T) {
	// GIVEN a mid-run snapshot with one running and one ready process
	snap := sim.Snapshot{
		Tick:            3,
		Policy:          sim.PolicyRR,
		RunningID:       intPtr(1),
		ContextSwitches: 2,
		Processes: []sim.ProcessView{
			{ID: 1, State: sim.StateRunning, Remaining: 2, BurstTotal: 5, ArrivalTick: 0, Priority: 4},
			{ID: 2, State: sim.StateReady, Remaining: 3, BurstTotal: 3, ArrivalTick: 1, Priority: 7},
		},
		Gantt: []sim.GanttSpan{
			{ID: 1, Start: 0, End: 2},
			{ID: -1, Start: 2, End: 3},
		},
	}

	out := FormatSnapshot(snap)

	assert.Contains(t, out, "tick 3")
	assert.Contains(t, out, "policy=RR")
	assert.Contains(t, out, "cpu=P1")
	assert.Contains(t, out, "switches=2")
	// The running process carries the marker, the ready one does not.
	assert.Contains(t, out, ">1")
	assert.Contains(t, out, " 2")
	assert.Contains(t, out, "P1[0-2)")
	assert.Contains(t, out, "idle[2-3)")
	assert.NotContains(t, out, "simulation complete")
	assert.NotContains(t, out, "done ", "no stats line before any completion")
}

func TestFormatSnapshot_IdleCPU(t *testing.T) {
	snap := sim.Snapshot{Tick: 0, Policy: sim.PolicyFCFS}

	out := FormatSnapshot(snap)
	assert.Contains(t, out, "cpu=idle")
}

func TestFormatSnapshot_CompletedRun(t *testing.T) {
	// GIVEN a finished simulation with stats
	snap := sim.Snapshot{
		Tick:      5,
		Policy:    sim.PolicyFCFS,
		Completed: true,
		Processes: []sim.ProcessView{
			{ID: 1, State: sim.StateFinished, BurstTotal: 3, FinishTick: intPtr(3)},
			{ID: 2, State: sim.StateFinished, BurstTotal: 2, FinishTick: intPtr(5)},
		},
		Stats: sim.Stats{
			AvgWaiting:     1.0,
			AvgTurnaround:  3.5,
			AvgResponse:    1.0,
			Throughput:     0.4,
			CPUUtilization: 100,
			CompletedCount: 2,
			TotalCount:     2,
		},
	}

	out := FormatSnapshot(snap)

	assert.Contains(t, out, "done 2/2")
	assert.Contains(t, out, "wait=1.00")
	assert.Contains(t, out, "turnaround=3.50")
	assert.Contains(t, out, "cpu=100.0%")
	assert.True(t, strings.HasSuffix(out, "simulation complete\n"))
}
