// Package stats keeps the raw accounting of a run and derives the
// percentages and classification bands of the final report
package stats

import (
	"math"
	"time"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/types"
)

// TimeFormat is how run boundaries appear in a report
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Percent classification bands
const (
	ClassDanger  = "danger"
	ClassWarning = "warning"
	ClassSuccess = "success"
)

// Counters are the raw totals observed from lifecycle events. Failures
// include failed hooks.
type Counters struct {
	Suites   int
	Tests    int
	Passes   int
	Pending  int
	Failures int
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Collector counts lifecycle events of one run
type Collector struct {
	slow     time.Duration
	counters Counters
}

// NewCollector creates a collector using slow as the speed threshold for
// passing tests (engine.DefaultSlow when zero)
func NewCollector(slow time.Duration) *Collector {
	if slow <= 0 {
		slow = engine.DefaultSlow
	}
	return &Collector{slow: slow}
}

// Attach subscribes the collector to r
func (c *Collector) Attach(r *engine.Runner) {
	r.On(engine.EventStart, func(ev engine.Event) {
		c.counters.Start = ev.Time
	})
	r.On(engine.EventSuite, func(ev engine.Event) {
		if ev.Suite != nil && !ev.Suite.Root {
			c.counters.Suites++
		}
	})
	r.On(engine.EventTestEnd, func(engine.Event) {
		c.counters.Tests++
	})
	r.On(engine.EventPass, func(ev engine.Event) {
		if t := ev.Runnable; t != nil && t.Speed == "" {
			t.Speed = engine.ClassifySpeed(t.Duration, c.slow)
		}
		c.counters.Passes++
	})
	r.On(engine.EventFail, func(engine.Event) {
		c.counters.Failures++
	})
	r.On(engine.EventPending, func(engine.Event) {
		c.counters.Pending++
	})
	r.On(engine.EventEnd, func(ev engine.Event) {
		c.counters.End = ev.Time
		if !c.counters.Start.IsZero() {
			c.counters.Duration = c.counters.End.Sub(c.counters.Start)
		}
	})
}

// Counters returns a snapshot of the totals seen so far
func (c *Collector) Counters() Counters {
	return c.counters
}

// Aggregate derives the report statistics from the raw counters and the
// number of tests registered in the normalized tree. The order of the steps
// matters: other is computed from the uncorrected failures.
func Aggregate(c Counters, registered int) types.RunStats {
	s := types.RunStats{
		Suites:          c.Suites,
		Tests:           c.Tests,
		Passes:          c.Passes,
		Pending:         c.Pending,
		Failures:        c.Failures,
		Start:           formatTime(c.Start),
		End:             formatTime(c.End),
		Duration:        c.Duration.Milliseconds(),
		TestsRegistered: registered,
	}

	s.PassPercent = percent(s.Passes, s.TestsRegistered-s.Pending)
	s.PendingPercent = percent(s.Pending, s.TestsRegistered)
	s.Other = s.Passes + s.Failures + s.Pending - s.Tests
	s.HasOther = s.Other > 0
	s.Skipped = s.TestsRegistered - s.Tests
	s.HasSkipped = s.Skipped > 0
	s.Failures -= s.Other
	s.PassPercentClass = PercentClass(s.PassPercent)
	s.PendingPercentClass = PercentClass(s.PendingPercent)
	return s
}

// percent rounds part/whole to one decimal place. A zero whole yields NaN
// or Inf, which is kept as is.
func percent(part, whole int) types.Percent {
	ratio := float64(part) / float64(whole)
	return types.Percent(roundHalfUp(ratio*1000) / 10)
}

// roundHalfUp rounds halves towards positive infinity
func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

// PercentClass returns the band of p. Values that are not finite compare
// false against both thresholds and fall through to success.
func PercentClass(p types.Percent) string {
	switch {
	case p <= 50:
		return ClassDanger
	case p > 50 && p < 80:
		return ClassWarning
	default:
		return ClassSuccess
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}
