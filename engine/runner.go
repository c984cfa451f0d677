package engine

import (
	"context"
	"time"
)

// EventKind names a lifecycle event
type EventKind string

const (
	EventStart    EventKind = "start"
	EventSuite    EventKind = "suite"     // a suite was entered
	EventSuiteEnd EventKind = "suite end" // a suite finished
	EventTest     EventKind = "test"      // a test was registered and is about to run
	EventTestEnd  EventKind = "test end"
	EventHook     EventKind = "hook" // a hook was registered and is about to run
	EventHookEnd  EventKind = "hook end"
	EventPass     EventKind = "pass"
	EventFail     EventKind = "fail"
	EventPending  EventKind = "pending" // a pending test was registered
	EventEnd      EventKind = "end"     // the run completed; may fire more than once
)

// Event is one lifecycle notification. Suite is set for suite events,
// Runnable for test and hook events.
type Event struct {
	Kind     EventKind
	Time     time.Time
	Suite    *Suite
	Runnable *Runnable
}

// Listener receives events synchronously on the emitting goroutine
type Listener func(Event)

// Runner dispatches lifecycle events for one run rooted at a suite
type Runner struct {
	root      *Suite
	listeners map[EventKind][]Listener
	now       func() time.Time
}

// NewRunner creates a runner for the graph rooted at root
func NewRunner(root *Suite) *Runner {
	if root == nil {
		root = NewRootSuite()
	}
	return &Runner{
		root:      root,
		listeners: make(map[EventKind][]Listener),
		now:       time.Now,
	}
}

// Suite returns the root suite of the run
func (r *Runner) Suite() *Suite {
	return r.root
}

// On subscribes fn to events of the given kind. Listeners run in
// subscription order.
func (r *Runner) On(kind EventKind, fn Listener) {
	r.listeners[kind] = append(r.listeners[kind], fn)
}

// Emit dispatches ev to every listener of its kind
func (r *Runner) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}
	for _, fn := range r.listeners[ev.Kind] {
		fn(ev)
	}
}

// Replay walks a completed graph and emits its lifecycle in execution
// order, bracketed by start and end. Tests that are neither pending nor
// carry a terminal state never ran and produce no events. A cancelled
// context stops the walk before the end event.
func Replay(ctx context.Context, r *Runner, start, end time.Time) error {
	r.Emit(Event{Kind: EventStart, Time: start})
	if err := replaySuite(ctx, r, r.root); err != nil {
		return err
	}
	r.Emit(Event{Kind: EventEnd, Time: end})
	return nil
}

func replaySuite(ctx context.Context, r *Runner, s *Suite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Emit(Event{Kind: EventSuite, Suite: s})

	for _, hook := range s.BeforeAll {
		replayHook(r, hook)
	}
	for _, hook := range s.BeforeEach {
		replayHook(r, hook)
	}
	for _, test := range s.Tests {
		switch {
		case test.Pending:
			r.Emit(Event{Kind: EventPending, Runnable: test})
			r.Emit(Event{Kind: EventTestEnd, Runnable: test})
		case test.State == StatePassed:
			r.Emit(Event{Kind: EventTest, Runnable: test})
			r.Emit(Event{Kind: EventPass, Runnable: test})
			r.Emit(Event{Kind: EventTestEnd, Runnable: test})
		case test.State == StateFailed:
			r.Emit(Event{Kind: EventTest, Runnable: test})
			r.Emit(Event{Kind: EventFail, Runnable: test})
			r.Emit(Event{Kind: EventTestEnd, Runnable: test})
		}
	}
	for _, hook := range s.AfterEach {
		replayHook(r, hook)
	}
	for _, hook := range s.AfterAll {
		replayHook(r, hook)
	}

	for _, child := range s.Suites {
		if err := replaySuite(ctx, r, child); err != nil {
			return err
		}
	}

	r.Emit(Event{Kind: EventSuiteEnd, Suite: s})
	return nil
}

func replayHook(r *Runner, hook *Runnable) {
	r.Emit(Event{Kind: EventHook, Runnable: hook})
	if hook.State == StateFailed {
		r.Emit(Event{Kind: EventFail, Runnable: hook})
	}
	r.Emit(Event{Kind: EventHookEnd, Runnable: hook})
}
