package testreport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-testreport/types"
)

// WriteSummary prints a table of every reported suite and its tests
func WriteSummary(w io.Writer, report *types.ReportObject) {
	if report == nil {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Test Report (%s)", formatDuration(report.Stats.Duration)))

	t.AppendHeader(table.Row{
		"Type", "Title", "Duration", "Tests", "Passed", "Failed", "Pending", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Title", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Pending", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	if root := report.Suites; root != nil {
		appendTests(t, root.Tests, "")
		for _, s := range root.Suites {
			appendSuite(t, s, "")
		}
	}

	s := report.Stats
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(s.Duration),
		s.TestsRegistered,
		s.Passes,
		s.Failures,
		s.Pending,
		s.Skipped,
		fmt.Sprintf("%s%% passing", s.PassPercent),
	})

	switch {
	case s.Failures > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case s.Skipped > 0 || s.Pending > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Render()
}

func appendSuite(t table.Writer, s *types.SuiteNode, indent string) {
	status := "✓ pass"
	switch {
	case len(s.Failures) > 0 || hookFailed(s):
		status = "✗ fail"
	case len(s.Passes) == 0 && len(s.Tests) > 0:
		status = "- skip"
	}
	t.AppendRow(table.Row{
		"Suite",
		indent + s.Title,
		formatDuration(s.Duration),
		len(s.Tests),
		len(s.Passes),
		len(s.Failures),
		len(s.Pending),
		len(s.Skipped),
		status,
	})
	child := indent + "    "
	appendTests(t, s.Tests, child)
	for _, hook := range append(append([]*types.TestNode{}, s.BeforeHooks...), s.AfterHooks...) {
		if hook.Fail {
			t.AppendRow(table.Row{"Hook", child + hook.Title, formatDuration(hook.Duration), "", "", 1, "", "", resultString(hook)})
		}
	}
	for _, c := range s.Suites {
		appendSuite(t, c, child)
	}
}

func appendTests(t table.Writer, tests []*types.TestNode, indent string) {
	for i, test := range tests {
		prefix := "├── "
		if i == len(tests)-1 {
			prefix = "└── "
		}
		t.AppendRow(table.Row{
			"Test",
			indent + prefix + test.Title,
			formatDuration(test.Duration),
			1,
			boolToInt(test.Pass),
			boolToInt(test.Fail),
			boolToInt(test.Pending),
			boolToInt(test.Skipped),
			resultString(test),
		})
	}
}

func hookFailed(s *types.SuiteNode) bool {
	for _, hook := range s.BeforeHooks {
		if hook.Fail {
			return true
		}
	}
	for _, hook := range s.AfterHooks {
		if hook.Fail {
			return true
		}
	}
	return false
}

func resultString(t *types.TestNode) string {
	switch {
	case t.Pass:
		return "✓ pass"
	case t.Fail:
		return "✗ fail"
	case t.Pending:
		return "- pending"
	default:
		return "- skip"
	}
}

func formatDuration(ms int64) string {
	return fmt.Sprintf("%.1fs", (time.Duration(ms) * time.Millisecond).Seconds())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// failureLines lists the full titles of failed tests and hooks
func failureLines(report *types.ReportObject) []string {
	if report == nil || report.Suites == nil {
		return nil
	}
	var lines []string
	for _, n := range types.NewIndex(report.Suites).Failed() {
		line := n.FullTitle
		if n.Err != nil && n.Err.Message != "" {
			line += ": " + strings.SplitN(n.Err.Message, "\n", 2)[0]
		}
		lines = append(lines, line)
	}
	return lines
}
