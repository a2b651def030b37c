// Package timeutil provides scene timestamp formatting and a small
// clock abstraction for testability.
package timeutil

import "time"

// Layouts for scene labels. Aggregated cubes carry one scene per solar
// day, so the date alone identifies the scene; unaggregated cubes need
// the capture time as well.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// SceneLabel formats a scene timestamp for logs, table output and file
// names.
func SceneLabel(t time.Time, aggregated bool) string {
	if aggregated {
		return t.Format(DateLayout)
	}
	return t.Format(DateTimeLayout)
}

// Clock abstracts time.Now so stores and servers can be tested with a
// fixed time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock with the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock implements Clock with a constant time.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time { return c.T }
