package util

import "time"

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// ManualClock records requested sleeps without blocking. Used by tests
// and dry runs that should not be paced.
type ManualClock struct {
	T      time.Time
	Slept  time.Duration
	Sleeps int
}

func (c *ManualClock) Now() time.Time { return c.T }

func (c *ManualClock) Sleep(d time.Duration) {
	c.T = c.T.Add(d)
	c.Slept += d
	c.Sleeps++
}
