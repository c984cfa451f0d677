// Package normalize converts the runtime suite graph into the acyclic,
// serializable report tree
package normalize

import (
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/errinfo"
	"github.com/ethereum-optimism/infra/op-testreport/safejson"
	"github.com/ethereum-optimism/infra/op-testreport/types"
)

// Config holds the options that affect normalization
type Config struct {
	UseInlineDiffs bool
	// WorkingDir is removed from suite file paths to build their relative form
	WorkingDir string
}

// RunCounters accumulates run-wide totals while a tree is normalized.
// One value belongs to exactly one finalization.
type RunCounters struct {
	Total int // tests registered
}

// Test converts one test or hook into its serializable record
func Test(r *engine.Runnable, cfg Config) *types.TestNode {
	id := r.UUID
	if id == "" {
		id = uuid.NewString()
	}

	node := &types.TestNode{
		Title:     stripansi.Strip(r.Title),
		FullTitle: stripansi.Strip(r.FullTitle()),
		TimedOut:  r.TimedOut,
		Duration:  r.Duration.Milliseconds(),
		State:     string(r.State),
		Speed:     r.Speed,
		Pass:      r.State == engine.StatePassed,
		Fail:      r.State == engine.StateFailed,
		Pending:   r.Pending,
		Err:       errinfo.Normalize(r.Err, errinfo.StyleFor(cfg.UseInlineDiffs)),
		UUID:      id,
		IsHook:    r.IsHook(),
	}
	node.Skipped = !node.Pass && !node.Fail && !node.Pending && !node.IsHook

	if r.Body != "" {
		node.Code = CleanCode(r.Body)
	}
	if r.Context != nil {
		if ctx, err := safejson.Marshal(r.Context, "  "); err == nil {
			node.Context = ctx
		}
	}
	if r.Parent != nil {
		node.IsRoot = r.Parent.Root
		node.ParentUUID = r.Parent.UUID
	}
	return node
}

// Suites normalizes the tree rooted at root. Suites with no tests, no hooks
// and no surviving children are pruned at every depth; a suite flagged as
// root is always kept.
func Suites(root *engine.Suite, counters *RunCounters, cfg Config) *types.SuiteNode {
	if root == nil {
		return nil
	}
	return suite(root, counters, cfg)
}

// suite returns nil when s is pruned
func suite(s *engine.Suite, counters *RunCounters, cfg Config) *types.SuiteNode {
	// Tests record their parent by id, so the id must exist first
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}

	children := make([]*types.SuiteNode, 0, len(s.Suites))
	for _, child := range s.Suites {
		if n := suite(child, counters, cfg); n != nil {
			children = append(children, n)
		}
	}

	node := newNode(s, cfg)
	node.Suites = children

	for _, h := range append(append([]*engine.Runnable{}, s.BeforeAll...), s.BeforeEach...) {
		node.BeforeHooks = append(node.BeforeHooks, Test(h, cfg))
	}
	for _, h := range append(append([]*engine.Runnable{}, s.AfterAll...), s.AfterEach...) {
		node.AfterHooks = append(node.AfterHooks, Test(h, cfg))
	}

	for _, r := range s.Tests {
		t := Test(r, cfg)
		node.Duration += t.Duration
		if t.Pass {
			node.Passes = append(node.Passes, t.UUID)
		}
		if t.Fail {
			node.Failures = append(node.Failures, t.UUID)
		}
		if t.Pending {
			node.Pending = append(node.Pending, t.UUID)
		}
		if t.Skipped {
			node.Skipped = append(node.Skipped, t.UUID)
		}
		node.Tests = append(node.Tests, t)
	}
	counters.Total += len(s.Tests)
	node.RootEmpty = s.Root && len(node.Tests) == 0

	if node.IsEmpty() && !s.Root {
		return nil
	}
	return node
}

func newNode(s *engine.Suite, cfg Config) *types.SuiteNode {
	node := &types.SuiteNode{
		UUID:        s.UUID,
		Title:       stripansi.Strip(s.Title),
		FullFile:    s.File,
		BeforeHooks: []*types.TestNode{},
		AfterHooks:  []*types.TestNode{},
		Tests:       []*types.TestNode{},
		Suites:      []*types.SuiteNode{},
		Passes:      []string{},
		Failures:    []string{},
		Pending:     []string{},
		Skipped:     []string{},
		Root:        s.Root,
		RootEmpty:   s.Root,
		Timeout:     s.Timeout.Milliseconds(),
	}
	if s.File != "" {
		node.File = relativeFile(s.File, cfg.WorkingDir)
	}
	return node
}

// relativeFile removes the first occurrence of the working directory,
// leaving the separator that followed it in place
func relativeFile(file, workingDir string) string {
	if workingDir == "" {
		return file
	}
	return strings.Replace(file, workingDir, "", 1)
}
