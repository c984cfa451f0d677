// Package engine models the runtime object graph a test-execution engine
// hands to reporters: suites that own tests and hooks, with parent
// back-references, and the lifecycle events fired while a run progresses.
package engine

import (
	"fmt"
	"strings"
	"time"
)

// State is the terminal execution state of a runnable
type State string

const (
	StatePassed State = "passed"
	StateFailed State = "failed"
)

// RunnableType distinguishes tests from hooks
type RunnableType string

const (
	TypeTest RunnableType = "test"
	TypeHook RunnableType = "hook"
)

// HookKind selects which hook list of a suite a hook belongs to
type HookKind string

const (
	HookBeforeAll  HookKind = "before all"
	HookBeforeEach HookKind = "before each"
	HookAfterAll   HookKind = "after all"
	HookAfterEach  HookKind = "after each"
)

// DefaultSlow is the duration above which a passing test is reported as slow
const DefaultSlow = 75 * time.Millisecond

// Speed classifications of a passing test
const (
	SpeedFast   = "fast"
	SpeedMedium = "medium"
	SpeedSlow   = "slow"
)

// Error is the loosely shaped failure value attached to a runnable.
// Empty strings and nil values mean the field was not provided.
type Error struct {
	Name     string
	Message  string
	Stack    string
	Actual   any
	Expected any
	ShowDiff *bool // nil when the assertion library did not say
}

func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.Message != "":
		return e.Name + ": " + e.Message
	case e.Message != "":
		return e.Message
	default:
		return e.Stack
	}
}

// Runnable is a test or a hook as seen while the run is in progress
type Runnable struct {
	Type     RunnableType
	Title    string
	Body     string // source text of the test body, if known
	Duration time.Duration
	State    State
	Pending  bool
	TimedOut bool
	Speed    string
	Err      *Error
	Context  any
	Parent   *Suite
	UUID     string
}

// FullTitle returns the titles from the outermost suite down to the runnable
func (r *Runnable) FullTitle() string {
	if r.Parent == nil {
		return r.Title
	}
	return joinTitles(r.Parent.FullTitle(), r.Title)
}

// IsHook reports whether the runnable is a hook
func (r *Runnable) IsHook() bool {
	return r.Type == TypeHook
}

// Suite is a titled group of tests, hooks and nested suites
type Suite struct {
	Title   string
	File    string
	Root    bool
	Timeout time.Duration
	UUID    string

	Parent *Suite
	Suites []*Suite
	Tests  []*Runnable

	BeforeAll  []*Runnable
	BeforeEach []*Runnable
	AfterAll   []*Runnable
	AfterEach  []*Runnable
}

// NewRootSuite creates the untitled top-level suite of a run
func NewRootSuite() *Suite {
	return &Suite{Root: true}
}

// NewSuite creates a detached suite
func NewSuite(title, file string) *Suite {
	return &Suite{Title: title, File: file}
}

// AddSuite attaches child to s and returns it
func (s *Suite) AddSuite(child *Suite) *Suite {
	child.Parent = s
	if child.File == "" {
		child.File = s.File
	}
	s.Suites = append(s.Suites, child)
	return child
}

// AddTest attaches test to s and returns it
func (s *Suite) AddTest(test *Runnable) *Runnable {
	test.Type = TypeTest
	test.Parent = s
	s.Tests = append(s.Tests, test)
	return test
}

// AddHook attaches hook to the list selected by kind and returns it.
// The hook title is rewritten the way hooks are displayed, e.g.
// `"before each" hook: open browser`.
func (s *Suite) AddHook(kind HookKind, hook *Runnable) *Runnable {
	hook.Type = TypeHook
	hook.Parent = s
	if hook.Title == "" {
		hook.Title = fmt.Sprintf("%q hook", string(kind))
	} else {
		hook.Title = fmt.Sprintf("%q hook: %s", string(kind), hook.Title)
	}
	switch kind {
	case HookBeforeAll:
		s.BeforeAll = append(s.BeforeAll, hook)
	case HookBeforeEach:
		s.BeforeEach = append(s.BeforeEach, hook)
	case HookAfterAll:
		s.AfterAll = append(s.AfterAll, hook)
	default:
		s.AfterEach = append(s.AfterEach, hook)
	}
	return hook
}

// FullTitle returns the titles from the outermost suite down to s
func (s *Suite) FullTitle() string {
	if s.Parent == nil {
		return s.Title
	}
	return joinTitles(s.Parent.FullTitle(), s.Title)
}

// Hooks returns every hook of the suite, before hooks first
func (s *Suite) Hooks() []*Runnable {
	hooks := make([]*Runnable, 0, len(s.BeforeAll)+len(s.BeforeEach)+len(s.AfterAll)+len(s.AfterEach))
	hooks = append(hooks, s.BeforeAll...)
	hooks = append(hooks, s.BeforeEach...)
	hooks = append(hooks, s.AfterAll...)
	return append(hooks, s.AfterEach...)
}

// ClassifySpeed buckets a passing duration against the slow threshold
func ClassifySpeed(d, slow time.Duration) string {
	if slow <= 0 {
		slow = DefaultSlow
	}
	switch {
	case d > slow:
		return SpeedSlow
	case d > slow/2:
		return SpeedMedium
	default:
		return SpeedFast
	}
}

func joinTitles(parent, title string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{parent, title} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
