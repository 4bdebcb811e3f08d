package pipeline

import (
	"time"
)

// Gate is a poll-and-compare periodic timer. It never sleeps; the caller
// asks whether a tick is due.
type Gate struct {
	period time.Duration
	next   time.Time
}

// NewGate returns a Gate whose first tick falls one period after start.
func NewGate(period time.Duration, start time.Time) *Gate {
	return &Gate{period: period, next: start.Add(period)}
}

// Due reports whether a tick is due at now and, if so, arms the next one.
// Ticks missed while the caller was busy collapse into one.
func (g *Gate) Due(now time.Time) bool {
	if now.Before(g.next) {
		return false
	}
	g.next = g.next.Add(g.period)
	if !now.Before(g.next) {
		g.next = now.Add(g.period)
	}
	return true
}
