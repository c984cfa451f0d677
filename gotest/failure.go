package gotest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
)

var (
	// framing lines printed by the testing package around test output
	framingLine = regexp.MustCompile(`^(=== (RUN|PAUSE|CONT|NAME)|--- (PASS|FAIL|SKIP):)|^(PASS|FAIL)$|^ok\s|^FAIL\t`)
	// labels of a testify assertion block
	testifyLabel = regexp.MustCompile(`^(Error Trace|Error|Test|Messages):\s*(.*)$`)
	testifyValue = regexp.MustCompile(`^(expected|actual)\s*:\s?(.*)$`)
	// the file:line prefix of t.Log/t.Error output
	logLocation = regexp.MustCompile(`^[\w.\-]+\.go:\d+:\s?`)
)

// cleanOutput drops framing lines and blank lines and removes the indent
// the testing package adds to test output
func cleanOutput(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || framingLine.MatchString(trimmed) {
			continue
		}
		out = append(out, strings.TrimPrefix(line, "    "))
	}
	return out
}

// failureFromOutput builds the error of a failed test. testify assertion
// blocks give a message and the compared values; anything else only
// carries the output as its stack.
func failureFromOutput(lines []string) *engine.Error {
	cleaned := cleanOutput(lines)
	err := &engine.Error{Stack: strings.Join(cleaned, "\n")}

	var (
		label    string
		errLines []string
		messages []string
		found    bool
	)
	for _, line := range cleaned {
		trimmed := strings.TrimSpace(line)
		if m := testifyLabel.FindStringSubmatch(trimmed); m != nil {
			label = m[1]
			value := strings.TrimSpace(m[2])
			switch label {
			case "Error":
				if found {
					// report the first assertion only
					label = ""
					continue
				}
				found = true
				errLines = append(errLines, value)
			case "Messages":
				messages = append(messages, value)
			}
			continue
		}
		switch label {
		case "Error":
			errLines = append(errLines, trimmed)
		case "Messages":
			messages = append(messages, trimmed)
		}
	}
	if !found {
		return err
	}

	err.Name = "Error"
	err.Message = strings.TrimSuffix(strings.TrimSpace(errLines[0]), ":")
	if len(messages) > 0 {
		err.Message += ": " + strings.Join(messages, " ")
	}
	for _, line := range errLines[1:] {
		m := testifyValue.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch m[1] {
		case "expected":
			if err.Expected == nil {
				err.Expected = unquote(m[2])
			}
		case "actual":
			if err.Actual == nil {
				err.Actual = unquote(m[2])
			}
		}
	}
	return err
}

// skipReason returns the message passed to t.Skip, if any
func skipReason(lines []string) string {
	var reasons []string
	for _, line := range cleanOutput(lines) {
		reasons = append(reasons, logLocation.ReplaceAllString(strings.TrimSpace(line), ""))
	}
	return strings.Join(reasons, "\n")
}

func timedOut(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(line, "test timed out") {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
