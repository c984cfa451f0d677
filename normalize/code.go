package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	linebreaks   = regexp.MustCompile("\r\n|[\r\n\u2028\u2029]")
	byteOrder    = regexp.MustCompile("^\uFEFF")
	signature    = regexp.MustCompile(`^(?s:.)*?(?:\{|=>) *\n?(?:\(|\{)?`)
	closingParen = regexp.MustCompile(`\)\s*\)\s*$`)
	closingBrace = regexp.MustCompile(`\s*};?\s*$`)
	leadSpaces   = regexp.MustCompile(`^\n?( *)`)
	leadTabs     = regexp.MustCompile(`^\n?(\t*)`)
)

// maxIndent is the largest repeat count the regexp engine accepts
const maxIndent = 1000

// CleanCode strips the declaration and the wrapping braces from the
// source text of a function and removes the indentation of its first
// line from every line
func CleanCode(src string) string {
	src = linebreaks.ReplaceAllString(src, "\n")
	src = replaceFirst(byteOrder, src, "")
	src = replaceFirst(signature, src, "")
	src = replaceFirst(closingParen, src, ")")
	src = replaceFirst(closingBrace, src, "")

	spaces := len(leadSpaces.FindStringSubmatch(src)[1])
	tabs := len(leadTabs.FindStringSubmatch(src)[1])

	unit, width := " ", spaces
	if tabs > 0 {
		unit, width = `\t`, tabs
	}
	width = min(width, maxIndent)
	indent := regexp.MustCompile(fmt.Sprintf(`(?m)^\n?%s{%d}`, unit, width))

	return strings.TrimSpace(indent.ReplaceAllString(src, ""))
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
