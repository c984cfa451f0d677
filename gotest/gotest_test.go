package gotest

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/source"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type stream struct {
	lines []string
	tick  int
}

func (s *stream) add(action, pkg, test, output string, elapsed float64) {
	s.tick++
	line, _ := json.Marshal(TestEvent{
		Time:    base.Add(time.Duration(s.tick) * time.Millisecond),
		Action:  action,
		Package: pkg,
		Test:    test,
		Output:  output,
		Elapsed: elapsed,
	})
	s.lines = append(s.lines, string(line))
}

func (s *stream) reader() *strings.Reader {
	return strings.NewReader(strings.Join(s.lines, "\n") + "\n")
}

type fakeLocator struct{}

func (fakeLocator) PackageDir(importPath string) (string, error) {
	if importPath == "example.com/demo/broken" {
		return "", errors.New("unknown")
	}
	return "/work/" + strings.TrimPrefix(importPath, "example.com/demo/"), nil
}

func (fakeLocator) Lookup(importPath, name string) (source.Func, bool, error) {
	if name == "TestAdd" {
		return source.Func{File: "/work/math/math_test.go", Source: "func TestAdd(t *testing.T) {\n\tt.Log(1)\n}"}, true, nil
	}
	return source.Func{}, false, nil
}

const pkg = "example.com/demo/math"

func TestParseOutcomes(t *testing.T) {
	s := &stream{}
	s.add(ActionStart, pkg, "", "", 0)
	s.add(ActionRun, pkg, "TestAdd", "", 0)
	s.add(ActionOutput, pkg, "TestAdd", "=== RUN   TestAdd\n", 0)
	s.add(ActionOutput, pkg, "TestAdd", "--- PASS: TestAdd (0.20s)\n", 0)
	s.add(ActionPass, pkg, "TestAdd", "", 0.2)
	s.add(ActionRun, pkg, "TestSub", "", 0)
	s.add(ActionOutput, pkg, "TestSub", "    math_test.go:9: want 1 got 2\n", 0)
	s.add(ActionFail, pkg, "TestSub", "", 0.01)
	s.add(ActionRun, pkg, "TestLater", "", 0)
	s.add(ActionOutput, pkg, "TestLater", "    math_test.go:20: not implemented\n", 0)
	s.add(ActionOutput, pkg, "TestLater", "--- SKIP: TestLater (0.00s)\n", 0)
	s.add(ActionSkip, pkg, "TestLater", "", 0)
	s.add(ActionRun, pkg, "TestNever", "", 0)
	s.add(ActionOutput, pkg, "", "FAIL\n", 0)
	s.add(ActionFail, pkg, "", "", 0.5)

	res, err := Parse(s.reader(), Options{Locator: fakeLocator{}})
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Millisecond), res.Start)
	assert.Equal(t, base.Add(15*time.Millisecond), res.End)
	assert.Equal(t, 15, res.Events)

	require.Len(t, res.Root.Suites, 1)
	suite := res.Root.Suites[0]
	assert.Equal(t, pkg, suite.Title)
	assert.Equal(t, "/work/math", suite.File)
	require.Len(t, suite.Tests, 4)
	assert.Empty(t, suite.BeforeAll, "package failure is explained by a test")

	add, sub, later, never := suite.Tests[0], suite.Tests[1], suite.Tests[2], suite.Tests[3]

	assert.Equal(t, engine.StatePassed, add.State)
	assert.Equal(t, 200*time.Millisecond, add.Duration)
	assert.Contains(t, add.Body, "func TestAdd")

	assert.Equal(t, engine.StateFailed, sub.State)
	require.NotNil(t, sub.Err)
	assert.Equal(t, "math_test.go:9: want 1 got 2", sub.Err.Stack)
	assert.Empty(t, sub.Err.Name)

	assert.True(t, later.Pending)
	assert.Equal(t, engine.ContextItem{Title: "skip reason", Value: "not implemented"}, later.Context)

	assert.Equal(t, engine.State(""), never.State)
	assert.False(t, never.Pending)
}

func TestParseSubtests(t *testing.T) {
	s := &stream{}
	s.add(ActionRun, pkg, "TestTable", "", 0)
	s.add(ActionRun, pkg, "TestTable/case_a", "", 0)
	s.add(ActionPass, pkg, "TestTable/case_a", "", 0)
	s.add(ActionRun, pkg, "TestTable/case_b", "", 0)
	s.add(ActionRun, pkg, "TestTable/case_b/deep", "", 0)
	s.add(ActionFail, pkg, "TestTable/case_b/deep", "", 0)
	s.add(ActionFail, pkg, "TestTable/case_b", "", 0)
	s.add(ActionFail, pkg, "TestTable", "", 0)
	s.add(ActionRun, pkg, "TestOwn", "", 0)
	s.add(ActionRun, pkg, "TestOwn/child", "", 0)
	s.add(ActionPass, pkg, "TestOwn/child", "", 0)
	s.add(ActionOutput, pkg, "TestOwn", "    own_test.go:4: cleanup failed\n", 0)
	s.add(ActionFail, pkg, "TestOwn", "", 0.1)

	res, err := Parse(s.reader(), Options{})
	require.NoError(t, err)

	suite := res.Root.Suites[0]
	assert.Empty(t, suite.Tests, "parents with subtests become suites")
	require.Len(t, suite.Suites, 2)

	table := suite.Suites[0]
	assert.Equal(t, "TestTable", table.Title)
	require.Len(t, table.Tests, 1)
	assert.Equal(t, "case_a", table.Tests[0].Title)
	require.Len(t, table.Suites, 1)
	caseB := table.Suites[0]
	assert.Equal(t, "case_b", caseB.Title)
	require.Len(t, caseB.Tests, 1)
	assert.Equal(t, "deep", caseB.Tests[0].Title)
	assert.Equal(t, "TestTable case_b deep", caseB.Tests[0].FullTitle()[len(pkg)+1:])
	assert.Empty(t, table.AfterAll, "failure comes from a subtest")

	own := suite.Suites[1]
	require.Len(t, own.AfterAll, 1)
	hook := own.AfterAll[0]
	assert.Equal(t, `"after all" hook for "TestOwn"`, hook.Title)
	assert.Equal(t, engine.StateFailed, hook.State)
	assert.Equal(t, "own_test.go:4: cleanup failed", hook.Err.Stack)
}

func TestParsePackageFailure(t *testing.T) {
	s := &stream{}
	s.add(ActionOutput, "example.com/demo/broken", "", "# example.com/demo/broken\n", 0)
	s.add(ActionOutput, "example.com/demo/broken", "", "./broken.go:3:1: syntax error\n", 0)
	s.add(ActionOutput, "example.com/demo/broken", "", "FAIL\texample.com/demo/broken [build failed]\n", 0)
	s.add(ActionFail, "example.com/demo/broken", "", "", 0)

	res, err := Parse(s.reader(), Options{Locator: fakeLocator{}})
	require.NoError(t, err)

	suite := res.Root.Suites[0]
	assert.Empty(t, suite.File)
	require.Len(t, suite.BeforeAll, 1)
	hook := suite.BeforeAll[0]
	assert.Equal(t, engine.StateFailed, hook.State)
	assert.Equal(t, "# example.com/demo/broken\n./broken.go:3:1: syntax error", hook.Err.Stack)
}

func TestParseSkipsGarbage(t *testing.T) {
	input := "not json\n\n" + `{"Action":"run","Package":"p","Test":"TestX"}` + "\n"
	res, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Events)
	assert.True(t, res.Start.IsZero())
}

func TestFailureFromTestifyOutput(t *testing.T) {
	output := []string{
		"=== RUN   TestCompare\n",
		"    compare_test.go:12: \n",
		"        \tError Trace:\t/work/compare_test.go:12\n",
		"        \tError:      \tNot equal: \n",
		"        \t            \texpected: \"foo\\nbar\"\n",
		"        \t            \tactual  : \"foo\\nbaz\"\n",
		"        \t            \t\n",
		"        \t            \tDiff:\n",
		"        \t            \t--- Expected\n",
		"        \t            \t+++ Actual\n",
		"        \tTest:       \tTestCompare\n",
		"        \tMessages:   \tvalues should match\n",
		"--- FAIL: TestCompare (0.00s)\n",
	}

	err := failureFromOutput(output)
	assert.Equal(t, "Error", err.Name)
	assert.Equal(t, "Not equal: values should match", err.Message)
	assert.Equal(t, "foo\nbar", err.Expected)
	assert.Equal(t, "foo\nbaz", err.Actual)
	assert.Contains(t, err.Stack, "Error Trace:")
	assert.NotContains(t, err.Stack, "--- FAIL")
}

func TestFailureFromTestifyUnquotedValues(t *testing.T) {
	err := failureFromOutput([]string{
		"        \tError:      \tNot equal: \n",
		"        \t            \texpected: 1\n",
		"        \t            \tactual  : 2\n",
	})
	assert.Equal(t, "1", err.Expected)
	assert.Equal(t, "2", err.Actual)
	assert.Equal(t, "Not equal", err.Message)
}

func TestTimedOut(t *testing.T) {
	assert.True(t, timedOut([]string{"panic: test timed out after 1s\n"}))
	assert.False(t, timedOut([]string{"ok\n"}))
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "framing", in: []string{"=== RUN   TestX\n", "=== PAUSE TestX\n", "--- PASS: TestX (0.00s)\n", "PASS\n", "ok  \tpkg\t0.01s\n"}, want: []string{}},
		{name: "indent", in: []string{"    x_test.go:3: hello\n", "        continued\n"}, want: []string{"x_test.go:3: hello", "    continued"}},
		{name: "blank", in: []string{"\n", "   \n"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanOutput(tt.in))
		})
	}
}
