// Tracks simulation-wide performance statistics such as average waiting,
// turnaround and response times, throughput, and CPU utilization.

package sim

import "fmt"

// Stats aggregates scheduling quality metrics across the process set.
// Averages cover finished processes only; Throughput and CPUUtilization are
// relative to the current tick count.
type Stats struct {
	AvgWaiting     float64 `json:"avg_waiting"`
	AvgTurnaround  float64 `json:"avg_turnaround"`
	AvgResponse    float64 `json:"avg_response"`
	Throughput     float64 `json:"throughput"`      // finished processes per tick
	CPUUtilization float64 `json:"cpu_utilization"` // percent of ticks with a running process
	CompletedCount int     `json:"completed_count"`
	TotalCount     int     `json:"total_count"`
}

// computeStats derives Stats from the live process set.
// busyTicks is the number of ticks during which some process held the CPU.
func computeStats(procs []*Process, currentTick, busyTicks int) Stats {
	s := Stats{TotalCount: len(procs)}

	var waiting, turnaround, response int
	for _, p := range procs {
		if p.State != StateFinished {
			continue
		}
		s.CompletedCount++
		waiting += p.WaitingTicks
		turnaround += p.TurnaroundTicks()
		response += p.ResponseTicks()
	}

	if s.CompletedCount > 0 {
		n := float64(s.CompletedCount)
		s.AvgWaiting = float64(waiting) / n
		s.AvgTurnaround = float64(turnaround) / n
		s.AvgResponse = float64(response) / n
	}
	if currentTick > 0 {
		s.Throughput = float64(s.CompletedCount) / float64(currentTick)
		s.CPUUtilization = float64(busyTicks) / float64(currentTick) * 100
	}
	return s
}

// Print displays aggregated statistics, used by the renderer's final report.
func (s Stats) Print() {
	fmt.Println("=== Scheduling Statistics ===")
	fmt.Printf("Completed            : %d/%d\n", s.CompletedCount, s.TotalCount)
	if s.CompletedCount > 0 {
		fmt.Printf("Average Waiting      : %.2f ticks\n", s.AvgWaiting)
		fmt.Printf("Average Turnaround   : %.2f ticks\n", s.AvgTurnaround)
		fmt.Printf("Average Response     : %.2f ticks\n", s.AvgResponse)
		fmt.Printf("Throughput           : %.3f proc/tick\n", s.Throughput)
		fmt.Printf("CPU Utilization      : %.1f%%\n", s.CPUUtilization)
	}
}
