// Package console prints the live, indented progress of a run
package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
)

// Spec writes one line per suite and test as events arrive, followed by
// a summary and the details of every failure
type Spec struct {
	w     io.Writer
	color bool

	indents  int
	passes   int
	pending  int
	failures []*engine.Runnable
	start    time.Time
	finished bool
}

// NewSpec creates a reporter writing to w
func NewSpec(w io.Writer, color bool) *Spec {
	return &Spec{w: w, color: color}
}

// Attach subscribes the reporter to r
func (s *Spec) Attach(r *engine.Runner) {
	r.On(engine.EventStart, func(ev engine.Event) {
		s.start = ev.Time
		s.println()
	})
	r.On(engine.EventSuite, func(ev engine.Event) {
		s.indents++
		if ev.Suite != nil && !ev.Suite.Root {
			s.printf("%s%s\n", s.indent(), ev.Suite.Title)
		}
	})
	r.On(engine.EventSuiteEnd, func(engine.Event) {
		s.indents--
		if s.indents == 1 {
			s.println()
		}
	})
	r.On(engine.EventPending, func(ev engine.Event) {
		s.pending++
		s.printf("%s  %s\n", s.indent(), s.paint(text.FgCyan, "- "+ev.Runnable.Title))
	})
	r.On(engine.EventPass, func(ev engine.Event) {
		s.passes++
		t := ev.Runnable
		line := s.indent() + "  " + s.paint(text.FgGreen, "✓") + " " + s.paint(text.FgHiBlack, t.Title)
		switch t.Speed {
		case engine.SpeedSlow:
			line += s.paint(text.FgRed, fmt.Sprintf(" (%dms)", t.Duration.Milliseconds()))
		case engine.SpeedMedium:
			line += s.paint(text.FgYellow, fmt.Sprintf(" (%dms)", t.Duration.Milliseconds()))
		}
		s.printf("%s\n", line)
	})
	r.On(engine.EventFail, func(ev engine.Event) {
		s.failures = append(s.failures, ev.Runnable)
		s.printf("%s  %s\n", s.indent(), s.paint(text.FgRed, fmt.Sprintf("%d) %s", len(s.failures), ev.Runnable.Title)))
	})
	r.On(engine.EventEnd, func(ev engine.Event) {
		// the run-completed signal may repeat
		if s.finished {
			return
		}
		s.finished = true
		s.epilogue(ev.Time.Sub(s.start))
	})
}

func (s *Spec) epilogue(d time.Duration) {
	s.println()
	s.printf("  %s %s\n", s.paint(text.FgGreen, fmt.Sprintf("%d passing", s.passes)), s.paint(text.FgHiBlack, fmt.Sprintf("(%s)", humanDuration(d))))
	if s.pending > 0 {
		s.printf("  %s\n", s.paint(text.FgCyan, fmt.Sprintf("%d pending", s.pending)))
	}
	if len(s.failures) > 0 {
		s.printf("  %s\n", s.paint(text.FgRed, fmt.Sprintf("%d failing", len(s.failures))))
	}
	s.println()

	for i, f := range s.failures {
		s.printf("  %d) %s:\n", i+1, f.FullTitle())
		if f.Err == nil {
			s.println()
			continue
		}
		msg := f.Err.Error()
		if msg != "" {
			s.printf("%s\n", s.paint(text.FgRed, indentLines(msg, "     ")))
		}
		if f.Err.Stack != "" && f.Err.Stack != msg {
			s.printf("%s\n", s.paint(text.FgHiBlack, indentLines(f.Err.Stack, "      ")))
		}
		s.println()
	}
}

func (s *Spec) indent() string {
	if s.indents < 2 {
		return ""
	}
	return strings.Repeat("  ", s.indents-1)
}

func (s *Spec) paint(c text.Color, str string) string {
	if !s.color {
		return str
	}
	return c.Sprint(str)
}

func (s *Spec) printf(format string, args ...any) {
	fmt.Fprintf(s.w, format, args...)
}

func (s *Spec) println() {
	fmt.Fprintln(s.w)
}

func indentLines(str, prefix string) string {
	lines := strings.Split(str, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
