// Package debounce coalesces bursts of calls into a single deferred call.
package debounce

import (
	"sync"
	"time"
)

// Timer runs fn once the timer has been idle for the configured delay.
// Every Arm within the window pushes the deadline back. A pending call is
// lost on Cancel and runs immediately on Flush.
type Timer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	t       *time.Timer
	gen     uint64
	pending bool
}

func New(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

// Arm schedules fn after the delay, replacing any pending schedule.
func (d *Timer) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.t = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Timer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.fn()
}

// Flush runs a pending call now, on the caller's goroutine. It reports
// whether anything was pending.
func (d *Timer) Flush() bool {
	if !d.disarm() {
		return false
	}
	d.fn()
	return true
}

// Cancel drops a pending call. It reports whether anything was pending.
func (d *Timer) Cancel() bool {
	return d.disarm()
}

func (d *Timer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Timer) disarm() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return false
	}
	d.pending = false
	d.gen++
	if d.t != nil {
		d.t.Stop()
	}
	return true
}
