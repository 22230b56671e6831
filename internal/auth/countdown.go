package auth

import (
	"math"
	"sync"
	"time"
)

// Countdown ticks once per second until its deadline. It is the cancellable
// timer handle owned by a pending verification.
type Countdown struct {
	deadline time.Time
	now      func() time.Time
	ticker   *time.Ticker
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// StartCountdown starts a countdown of d. onTick, when set, receives the
// remaining whole seconds after every tick.
func StartCountdown(d time.Duration, now func() time.Time, onTick func(remaining int)) *Countdown {
	if now == nil {
		now = time.Now
	}
	c := &Countdown{
		deadline: now().Add(d),
		now:      now,
		ticker:   time.NewTicker(time.Second),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run(onTick)
	return c
}

func (c *Countdown) run(onTick func(int)) {
	defer c.ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.C:
			remaining := c.Remaining()
			if onTick != nil {
				onTick(remaining)
			}
			if remaining <= 0 {
				c.doneOnce.Do(func() { close(c.done) })
				return
			}
		}
	}
}

// Remaining returns the whole seconds left, never negative.
func (c *Countdown) Remaining() int {
	left := c.deadline.Sub(c.now()).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}

// Expired reports whether the deadline passed.
func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Done is closed when the countdown reaches zero. It stays open if the
// countdown is stopped first.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Stop cancels the ticker. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
