package executor

import (
	"math/rand"
	"sync"
	"time"
)

// Timer is a cancellable, reschedulable timer whose firing callback is
// posted onto an owning Context, so timer callbacks never race with other
// mutations of that context's state.
type Timer struct {
	mu     sync.Mutex
	ctx    *Context
	timer  *time.Timer
	fn     func()
	active bool
}

// NewTimer arms a timer that will Post(fn) onto ctx after d.
func NewTimer(ctx *Context, d time.Duration, fn func()) *Timer {
	t := &Timer{ctx: ctx, fn: fn}
	t.timer = time.AfterFunc(d, t.fire)
	t.active = true
	return t
}

func (t *Timer) fire() {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if active {
		t.ctx.Post(t.fn)
	}
}

// Reset cancels any pending firing and reschedules after d.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer.Stop()
	t.active = true
	t.timer = time.AfterFunc(d, t.fire)
}

// Stop cancels the timer; it will not fire again.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.timer.Stop()
}

// RandomizedDuration returns a duration uniformly drawn from
// [base, 2*base), used for follower and candidate election timeouts.
func RandomizedDuration(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base + time.Duration(rand.Int63n(int64(base)))
}
