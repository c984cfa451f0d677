package errinfo

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ethereum-optimism/infra/op-testreport/types"
)

var changeMarker = regexp.MustCompile(`^(-|\+)`)

// UnifiedDiff returns the hunks of a patch turning actual into expected,
// without file headers, hunk ranges or missing-newline markers. Changed
// lines keep their marker followed by a space.
func UnifiedDiff(actual, expected string) string {
	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(actual),
		B:        difflib.SplitLines(expected),
		FromFile: "string",
		ToFile:   "string",
		Context:  4,
	})
	if err != nil {
		return ""
	}

	lines := strings.Split(patch, "\n")
	out := make([]string, 0, len(lines))
	inHunk := false
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk || strings.Contains(line, `\ No newline`) {
			continue
		}
		out = append(out, changeMarker.ReplaceAllString(line, "${1} "))
	}
	return strings.Join(out, "\n")
}

// InlineDiff returns the word-level differences between actual and
// expected, keeping whitespace as tokens of its own
func InlineDiff(actual, expected string) []types.DiffSegment {
	a, b := tokenize(actual), tokenize(expected)
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)

	segments := make([]types.DiffSegment, 0)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			segments = appendSegment(segments, a[op.I1:op.I2], false, false)
		case 'd':
			segments = appendSegment(segments, a[op.I1:op.I2], false, true)
		case 'i':
			segments = appendSegment(segments, b[op.J1:op.J2], true, false)
		case 'r':
			segments = appendSegment(segments, a[op.I1:op.I2], false, true)
			segments = appendSegment(segments, b[op.J1:op.J2], true, false)
		}
	}
	return segments
}

func appendSegment(segments []types.DiffSegment, tokens []string, added, removed bool) []types.DiffSegment {
	if len(tokens) == 0 {
		return segments
	}
	return append(segments, types.DiffSegment{
		Value:   strings.Join(tokens, ""),
		Added:   added,
		Removed: removed,
		Count:   len(tokens),
	})
}

type tokenClass int

const (
	classSpace tokenClass = iota
	classWord
	classPunct
)

func classify(r rune) tokenClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
		return classWord
	default:
		return classPunct
	}
}

// tokenize splits s into runs of whitespace, runs of word characters and
// punctuation; brackets and quotes always stand alone
func tokenize(s string) []string {
	tokens := make([]string, 0)
	var current strings.Builder
	var currentClass tokenClass

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		class := classify(r)
		if strings.ContainsRune(`()[]{}'"`, r) {
			flush()
			tokens = append(tokens, string(r))
			continue
		}
		if current.Len() > 0 && class != currentClass {
			flush()
		}
		currentClass = class
		current.WriteRune(r)
	}
	flush()
	return tokens
}
