package sequencer

import (
	"context"
	"sync"
	"time"
)

// Clock measures time from the start of a composition and waits on it.
type Clock interface {
	Start()
	Elapsed() time.Duration
	// WaitUntil blocks until Elapsed() >= at or ctx ends, returning ctx.Err()
	// in the latter case.
	WaitUntil(ctx context.Context, at time.Duration) error
}

// RealClock follows wall time.
type RealClock struct {
	mu    sync.RWMutex
	start time.Time
}

// NewRealClock returns a wall clock; Start resets its origin.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

func (c *RealClock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.start)
}

func (c *RealClock) WaitUntil(ctx context.Context, at time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := at - c.Elapsed()
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// VirtualClock jumps straight to whatever time is waited for. Used for
// export and tests.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtualClock returns a clock at time zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Start() {
	c.mu.Lock()
	c.now = 0
	c.mu.Unlock()
}

func (c *VirtualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) WaitUntil(ctx context.Context, at time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if at > c.now {
		c.now = at
	}
	c.mu.Unlock()
	return nil
}
