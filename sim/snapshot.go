// Defines the Snapshot: the immutable, fully-consistent view of simulation
// state produced after every tick and broadcast to renderer clients.

package sim

// ProcessView is the wire form of one process inside a snapshot.
type ProcessView struct {
	ID          int          `json:"id"`
	State       ProcessState `json:"state"`
	Remaining   int          `json:"remaining"`
	BurstTotal  int          `json:"burst_total"`
	ArrivalTick int          `json:"arrival_tick"`
	Priority    int          `json:"priority"`
	FinishTick  *int         `json:"finish_tick"` // null until finished

	// Supplementary per-process metrics.
	WaitingTicks  int  `json:"waiting_ticks"`
	ResponseTicks *int `json:"response_ticks"` // null until first dispatch
}

// GanttSpan records one contiguous stretch of CPU ownership.
// ID is -1 while the CPU sat idle. End is exclusive.
type GanttSpan struct {
	ID    int `json:"id"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snapshot is handed to the broker after each tick. It shares no memory with
// live engine state: every renderer may hold it indefinitely.
type Snapshot struct {
	Tick      int           `json:"tick"`
	Policy    PolicyKind    `json:"policy"`
	Processes []ProcessView `json:"processes"`
	RunningID *int          `json:"running_id"` // null when the CPU is idle

	// Supplementary fields beyond the base contract.
	Completed       bool        `json:"completed"`
	ContextSwitches int         `json:"context_switches"`
	Gantt           []GanttSpan `json:"gantt"`
	Stats           Stats       `json:"stats"`
}

// viewOf copies a live process into its wire form.
func viewOf(p *Process) ProcessView {
	v := ProcessView{
		ID:           p.ID,
		State:        p.State,
		Remaining:    p.Remaining,
		BurstTotal:   p.BurstTotal,
		ArrivalTick:  p.ArrivalTick,
		Priority:     p.Priority,
		WaitingTicks: p.WaitingTicks,
	}
	if p.State == StateFinished {
		finish := p.FinishTick
		v.FinishTick = &finish
	}
	if p.FirstRunTick >= 0 {
		resp := p.ResponseTicks()
		v.ResponseTicks = &resp
	}
	return v
}
