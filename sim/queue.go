// Implements the ReadyQueue, which holds all processes eligible for the CPU.
// Processes are enqueued when promoted from Pending or returned by preemption.

package sim

import (
	"fmt"
	"strings"
)

// ReadyQueue represents the ordered collection of processes in state Ready.
// For Round Robin the enqueue order IS the scheduling order (FIFO of most
// recent assignment); the other policies re-sort the contents every tick
// through Reorder, so between ticks only membership is meaningful.
type ReadyQueue struct {
	queue []*Process
}

// Enqueue adds a process to the back of the ready queue.
func (rq *ReadyQueue) Enqueue(p *Process) {
	rq.queue = append(rq.queue, p)
}

// Len returns the number of processes in the queue.
func (rq *ReadyQueue) Len() int {
	return len(rq.queue)
}

// Peek returns the process at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (rq *ReadyQueue) Peek() *Process {
	if len(rq.queue) == 0 {
		return nil
	}
	return rq.queue[0]
}

// Dequeue removes and returns the process at the front of the queue.
// Returns nil if the queue is empty.
func (rq *ReadyQueue) Dequeue() *Process {
	if len(rq.queue) == 0 {
		return nil
	}
	head := rq.queue[0]
	rq.queue = rq.queue[1:]
	return head
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
// For reordering, use Reorder() instead.
func (rq *ReadyQueue) Items() []*Process {
	return rq.queue
}

// Reorder applies fn to the queue contents, allowing in-place reordering.
// The policy ordering pass is the primary consumer:
//
//	rq.Reorder(func(procs []*Process) {
//	    policy.order(procs)
//	})
//
// fn receives the underlying slice and may sort it in-place.
// fn MUST NOT change the slice length (no append/delete).
func (rq *ReadyQueue) Reorder(fn func([]*Process)) {
	if fn == nil {
		panic("Reorder: fn must not be nil")
	}
	n := len(rq.queue)
	fn(rq.queue)
	if len(rq.queue) != n {
		panic(fmt.Sprintf("Reorder: fn changed queue length from %d to %d", n, len(rq.queue)))
	}
}

// Clear empties the queue. Used on engine reset.
func (rq *ReadyQueue) Clear() {
	rq.queue = rq.queue[:0]
}

func (rq *ReadyQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, p := range rq.queue {
		sb.WriteString(fmt.Sprintf("P%d", p.ID))
		if i < len(rq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
