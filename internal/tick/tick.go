// Package tick implements the fixed-timestep driver shared by the client
// and server loops: a monotonic period with lag reporting, generalized
// from the teacher's time.Ticker-based game loop into a reusable type so
// both the sim-rate and net-rate loops can run it independently.
package tick

import "time"

// Driver establishes a monotonic period at rate Hz and tracks period
// boundary crossings against a reference clock.
type Driver struct {
	period time.Duration
	last   time.Time
	now    func() time.Time
}

// New returns a Driver ticking at rateHz periods per second, with its
// reference clock started at the current time.
func New(rateHz int) *Driver {
	if rateHz <= 0 {
		rateHz = 1
	}
	return newWithClock(rateHz, time.Now)
}

func newWithClock(rateHz int, now func() time.Time) *Driver {
	d := &Driver{
		period: time.Second / time.Duration(rateHz),
		now:    now,
	}
	d.last = d.now()
	return d
}

// Advance reports whether at least one full period has elapsed since the
// last Advance/Wait call that consumed a boundary, consuming at most one
// period each call (so a caller polling faster than the tick rate sees
// false most calls, true once per period).
func (d *Driver) Advance() bool {
	now := d.now()
	if now.Sub(d.last) < d.period {
		return false
	}
	d.last = d.last.Add(d.period)
	return true
}

// Wait blocks until the next period boundary (or returns immediately if
// already past it), then returns the number of full periods by which the
// caller was already late — 0 when on schedule, >0 when the caller is
// lagging behind the intended rate.
func (d *Driver) Wait() int {
	now := d.now()
	elapsed := now.Sub(d.last)
	if elapsed < d.period {
		time.Sleep(d.period - elapsed)
		d.last = d.last.Add(d.period)
		return 0
	}

	lag := int(elapsed/d.period) - 1
	if lag < 0 {
		lag = 0
	}
	d.last = d.last.Add(d.period)
	return lag
}

// Period returns the configured tick period.
func (d *Driver) Period() time.Duration {
	return d.period
}
