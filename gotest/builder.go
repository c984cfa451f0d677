package gotest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/source"
)

// maxLineSize bounds a single event line; test output can be large
const maxLineSize = 16 * 1024 * 1024

// FuncLocator finds packages and test function sources
type FuncLocator interface {
	PackageDir(importPath string) (string, error)
	Lookup(importPath, name string) (source.Func, bool, error)
}

// Options configure how a stream is turned into a graph
type Options struct {
	Locator FuncLocator // optional
	Log     log.Logger  // optional
}

// Result is the graph of one `go test -json` run
type Result struct {
	Root   *engine.Suite
	Start  time.Time // first event
	End    time.Time // last event
	Events int
	// Skipped counts lines that were not test events
	Skipped int
}

type packageState struct {
	suite  *engine.Suite
	tests  map[string]*testState
	output []string
	action string
}

type testState struct {
	runnable  *engine.Runnable
	container *engine.Suite
	suite     *engine.Suite // set once the test has subtests
	file      string
	output    []string
}

type builder struct {
	opts     Options
	result   *Result
	packages map[string]*packageState
}

// Parse reads events until EOF. Every package becomes a suite of the root
// and every test with subtests becomes a nested suite.
func Parse(r io.Reader, opts Options) (*Result, error) {
	if opts.Log == nil {
		opts.Log = log.NewLogger(log.DiscardHandler())
	}
	b := &builder{
		opts:     opts,
		result:   &Result{Root: engine.NewRootSuite()},
		packages: make(map[string]*packageState),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		event, err := parseTestEvent(line)
		if err != nil {
			b.result.Skipped++
			opts.Log.Debug("Skipping non-event line", "line", string(line))
			continue
		}
		b.handle(event)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("event line exceeds %d bytes: %w", maxLineSize, err)
		}
		return nil, fmt.Errorf("failed to read test events: %w", err)
	}

	b.finish()
	opts.Log.Debug("Parsed test events", "events", b.result.Events, "skipped", b.result.Skipped, "packages", len(b.packages))
	return b.result, nil
}

func (b *builder) handle(e TestEvent) {
	b.result.Events++
	if !e.Time.IsZero() {
		if b.result.Start.IsZero() || e.Time.Before(b.result.Start) {
			b.result.Start = e.Time
		}
		if e.Time.After(b.result.End) {
			b.result.End = e.Time
		}
	}
	if e.Package == "" {
		return
	}

	pkg := b.pkg(e.Package)
	if e.Test == "" {
		switch {
		case e.Action == ActionOutput:
			pkg.output = append(pkg.output, e.Output)
		case e.terminal():
			pkg.action = e.Action
		}
		return
	}

	t := b.test(pkg, e.Package, e.Test)
	switch e.Action {
	case ActionOutput:
		t.output = append(t.output, e.Output)
	case ActionPass:
		if t.suite == nil {
			t.runnable.State = engine.StatePassed
			t.runnable.Duration = e.elapsed()
		}
	case ActionFail:
		if t.suite == nil {
			t.runnable.State = engine.StateFailed
			t.runnable.Duration = e.elapsed()
			t.runnable.TimedOut = timedOut(t.output)
			t.runnable.Err = failureFromOutput(t.output)
			return
		}
		// a parent failing on its own account, not through a subtest
		if !hasFailure(t.suite) {
			hook := t.suite.AddHook(engine.HookAfterAll, &engine.Runnable{
				State:    engine.StateFailed,
				Duration: e.elapsed(),
				TimedOut: timedOut(t.output),
				Err:      failureFromOutput(t.output),
			})
			hook.Title = fmt.Sprintf("%q hook for %q", engine.HookAfterAll, t.suite.Title)
		}
	case ActionSkip:
		if t.suite == nil {
			t.runnable.Pending = true
			t.runnable.Duration = e.elapsed()
			if reason := skipReason(t.output); reason != "" {
				engine.AddContext(t.runnable, engine.ContextItem{Title: "skip reason", Value: reason})
			}
		}
	}
}

func (b *builder) pkg(importPath string) *packageState {
	if pkg, ok := b.packages[importPath]; ok {
		return pkg
	}
	var dir string
	if b.opts.Locator != nil {
		if d, err := b.opts.Locator.PackageDir(importPath); err == nil {
			dir = d
		} else {
			b.opts.Log.Debug("Package directory not found", "package", importPath, "err", err)
		}
	}
	pkg := &packageState{
		suite: b.result.Root.AddSuite(engine.NewSuite(importPath, dir)),
		tests: make(map[string]*testState),
	}
	b.packages[importPath] = pkg
	return pkg
}

func (b *builder) test(pkg *packageState, importPath, name string) *testState {
	if t, ok := pkg.tests[name]; ok {
		return t
	}

	container, title := pkg.suite, name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		parent := b.test(pkg, importPath, name[:i])
		container, title = b.promote(parent), name[i+1:]
	}

	t := &testState{container: container}
	t.runnable = container.AddTest(&engine.Runnable{Title: title})
	if container == pkg.suite && b.opts.Locator != nil {
		fn, ok, err := b.opts.Locator.Lookup(importPath, name)
		switch {
		case err != nil:
			b.opts.Log.Debug("Test source not found", "package", importPath, "test", name, "err", err)
		case ok:
			t.runnable.Body = fn.Source
			t.file = fn.File
		}
	}
	pkg.tests[name] = t
	return t
}

// promote turns a test into the suite of its subtests
func (b *builder) promote(t *testState) *engine.Suite {
	if t.suite != nil {
		return t.suite
	}
	t.suite = t.container.AddSuite(engine.NewSuite(t.runnable.Title, t.file))
	tests := t.container.Tests[:0]
	for _, r := range t.container.Tests {
		if r != t.runnable {
			tests = append(tests, r)
		}
	}
	t.container.Tests = tests
	return t.suite
}

// finish attributes package failures that no test accounts for, such as
// build errors or a failing TestMain
func (b *builder) finish() {
	for _, pkg := range b.packages {
		if pkg.action != ActionFail || hasFailure(pkg.suite) {
			continue
		}
		lines := pkg.output
		hook := pkg.suite.AddHook(engine.HookBeforeAll, &engine.Runnable{
			State:    engine.StateFailed,
			TimedOut: timedOut(lines),
			Err:      failureFromOutput(lines),
		})
		hook.Title = fmt.Sprintf("%q hook for %q", engine.HookBeforeAll, pkg.suite.Title)
	}
}

func hasFailure(s *engine.Suite) bool {
	for _, r := range s.Tests {
		if r.State == engine.StateFailed {
			return true
		}
	}
	for _, r := range s.Hooks() {
		if r.State == engine.StateFailed {
			return true
		}
	}
	for _, child := range s.Suites {
		if hasFailure(child) {
			return true
		}
	}
	return false
}
