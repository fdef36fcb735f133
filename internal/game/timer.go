package game

import (
	"sync"
	"time"
)

// countdown is a cancellable whole-second countdown. onTick fires once per
// interval with the remaining count; onExpire fires exactly once when the
// count reaches zero. A stopped countdown never fires either callback
// again. Callbacks run on the countdown's own goroutine, so they may take
// the owning room's mutex.
type countdown struct {
	mu        sync.Mutex
	remaining int
	started   bool
	stopped   bool
	expired   bool
	done      chan struct{}
	onTick    func(remaining int)
	onExpire  func()
}

func newCountdown(seconds int, onTick func(int), onExpire func()) *countdown {
	return &countdown{
		remaining: seconds,
		done:      make(chan struct{}),
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// start begins counting down at the given resolution. Starting twice is a
// no-op.
func (c *countdown) start(interval time.Duration) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	go c.run(interval)
}

func (c *countdown) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.remaining--
			rem := c.remaining
			expired := rem <= 0
			if expired {
				c.stopped = true
				c.expired = true
			}
			c.mu.Unlock()
			if expired {
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
			if c.onTick != nil {
				c.onTick(rem)
			}
		}
	}
}

// stop cancels the countdown. Idempotent; safe to call from any goroutine,
// including while holding the owning room's mutex.
func (c *countdown) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.done)
}

func (c *countdown) running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.stopped
}

func (c *countdown) hasExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// remainingSeconds reports the seconds left on the clock.
func (c *countdown) remainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}
