package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sched-sim/sched-sim/broker"
	"github.com/sched-sim/sched-sim/sim"
)

// Renderer consumes the broker's snapshot stream and paints each tick as a
// process table with a Gantt strip and a statistics line. It is a pure
// observer: nothing it does can affect the simulation.
type Renderer struct {
	url string
	out io.Writer
	log *logrus.Entry
}

// NewRenderer creates a renderer that writes to out.
func NewRenderer(url string, out io.Writer) *Renderer {
	return &Renderer{
		url: url,
		out: out,
		log: logrus.WithField("component", "renderer"),
	}
}

// Run connects as a renderer and paints snapshots until the server closes
// the stream or ctx is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	conn, err := dial(ctx, r.url, broker.RoleRenderer)
	if err != nil {
		return err
	}
	defer conn.Close()
	r.log.Infof("connected to %s", r.url)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var last sim.Snapshot
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				last.Stats.Print()
				return nil
			}
			return fmt.Errorf("snapshot stream: %w", err)
		}
		var snap sim.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		last = snap
		fmt.Fprint(r.out, FormatSnapshot(snap))
	}
}

// FormatSnapshot renders one snapshot as text. Kept separate from the
// connection loop so the layout is testable.
func FormatSnapshot(s sim.Snapshot) string {
	var sb strings.Builder

	running := "idle"
	if s.RunningID != nil {
		running = fmt.Sprintf("P%d", *s.RunningID)
	}
	fmt.Fprintf(&sb, "tick %-4d policy=%-8s cpu=%-5s switches=%d\n",
		s.Tick, s.Policy, running, s.ContextSwitches)

	fmt.Fprintf(&sb, "  %-4s %-8s %-9s %-7s %-8s %-6s\n",
		"pid", "state", "remaining", "burst", "arrival", "prio")
	for _, p := range s.Processes {
		marker := " "
		if p.State == sim.StateRunning {
			marker = ">"
		}
		fmt.Fprintf(&sb, " %s%-4d %-8s %-9d %-7d %-8d %-6d\n",
			marker, p.ID, p.State, p.Remaining, p.BurstTotal, p.ArrivalTick, p.Priority)
	}

	if len(s.Gantt) > 0 {
		sb.WriteString("  gantt:")
		for _, span := range s.Gantt {
			if span.ID < 0 {
				fmt.Fprintf(&sb, " idle[%d-%d)", span.Start, span.End)
			} else {
				fmt.Fprintf(&sb, " P%d[%d-%d)", span.ID, span.Start, span.End)
			}
		}
		sb.WriteString("\n")
	}

	if s.Stats.CompletedCount > 0 {
		fmt.Fprintf(&sb, "  done %d/%d  wait=%.2f  turnaround=%.2f  cpu=%.1f%%\n",
			s.Stats.CompletedCount, s.Stats.TotalCount,
			s.Stats.AvgWaiting, s.Stats.AvgTurnaround, s.Stats.CPUUtilization)
	}
	if s.Completed {
		sb.WriteString("  simulation complete\n")
	}
	return sb.String()
}
