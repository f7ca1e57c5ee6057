package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestClock_DrivesStepsUntilStopped(t *testing.T) {
	// GIVEN a fast clock counting its beats
	var steps atomic.Int64
	c := NewClock(5*time.Millisecond, func() { steps.Add(1) })

	go func() { _ = c.Run(context.Background()) }()

	// WHEN it runs for a while and is stopped
	deadline := time.After(2 * time.Second)
	for steps.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("clock produced no beats")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	c.Stop()

	// THEN no further beats arrive after Stop returns
	after := steps.Load()
	time.Sleep(30 * time.Millisecond)
	if got := steps.Load(); got != after {
		t.Errorf("beats after Stop: got %d, want %d", got, after)
	}
}

func TestClock_PauseFreezesBeats(t *testing.T) {
	// GIVEN a paused clock
	var steps atomic.Int64
	c := NewClock(5*time.Millisecond, func() { steps.Add(1) })
	c.Pause()

	go func() { _ = c.Run(context.Background()) }()
	defer c.Stop()

	// THEN no beats arrive while paused
	time.Sleep(30 * time.Millisecond)
	if got := steps.Load(); got != 0 {
		t.Fatalf("beats while paused: got %d, want 0", got)
	}

	// WHEN resumed THEN beats flow again
	c.Resume()
	deadline := time.After(2 * time.Second)
	for steps.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no beats after resume")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestClock_ContextCancellationStopsRun(t *testing.T) {
	// GIVEN a running clock
	c := NewClock(5*time.Millisecond, func() {})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	// WHEN the context is cancelled THEN Run returns the context error
	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestClock_ZeroIntervalFallsBackToDefault(t *testing.T) {
	c := NewClock(0, func() {})
	if c.interval != DefaultTickInterval {
		t.Errorf("interval: got %s, want %s", c.interval, DefaultTickInterval)
	}
}
