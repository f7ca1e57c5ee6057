package sim

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTickInterval is a human-observable pace of one tick per second.
const DefaultTickInterval = time.Second

// Clock drives the engine at a fixed interval, independent of client
// connectivity. It never touches the engine directly: each beat invokes the
// step callback, which the broker routes through its serialized command loop.
//
// Pause is cooperative: it takes effect at the next tick boundary and never
// interrupts a tick in progress.
type Clock struct {
	interval time.Duration
	step     func()
	log      *logrus.Entry

	mu     sync.Mutex
	paused bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewClock creates a clock beating every interval. step is invoked once per
// beat while the clock is not paused.
func NewClock(interval time.Duration, step func()) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{
		interval: interval,
		step:     step,
		log:      logrus.WithField("component", "clock"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called.
func (c *Clock) Run(ctx context.Context) error {
	c.log.Infof("clock started, interval=%s", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("clock stopping (context cancelled)")
			return ctx.Err()
		case <-c.stopCh:
			c.log.Info("clock stopping (stop called)")
			return nil
		case <-ticker.C:
			if c.Paused() {
				continue
			}
			c.step()
		}
	}
}

// Pause freezes the tick counter before the next beat.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.paused = true
		c.log.Info("clock paused")
	}
}

// Resume re-enables beats.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		c.log.Info("clock resumed")
	}
}

// Paused reports whether the clock is currently paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop shuts the clock down and waits for the current beat to finish.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}
