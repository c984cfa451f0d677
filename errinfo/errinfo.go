// Package errinfo turns loosely shaped assertion failures into normalized
// error records with an optional actual/expected diff
package errinfo

import (
	"reflect"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/safejson"
	"github.com/ethereum-optimism/infra/op-testreport/types"
)

// DiffStyle selects how actual/expected differences are rendered
type DiffStyle int

const (
	DiffUnified DiffStyle = iota // patch-style text
	DiffInline                   // word-level segments
)

// StyleFor maps the inline-diffs option to a DiffStyle
func StyleFor(useInlineDiffs bool) DiffStyle {
	if useInlineDiffs {
		return DiffInline
	}
	return DiffUnified
}

// Normalize builds the ErrorInfo of err. It returns nil when err is nil;
// missing fields only leave the corresponding output empty.
func Normalize(err *engine.Error, style DiffStyle) *types.ErrorInfo {
	if err == nil {
		return nil
	}

	info := &types.ErrorInfo{
		Stack: stripansi.Strip(err.Stack),
	}

	if wantsDiff(err) {
		actual, expected := displayValue(err.Actual), displayValue(err.Expected)
		switch style {
		case DiffInline:
			info.Diff = &types.DiffResult{Inline: InlineDiff(actual, expected)}
		default:
			info.Diff = &types.DiffResult{Unified: UnifiedDiff(actual, expected)}
		}
	}

	// Assertion libraries do not agree on an error shape, so the message is
	// rebuilt from its parts
	switch {
	case err.Name != "" && err.Message != "":
		info.Message = err.Name + ": " + stripansi.Strip(err.Message)
	case info.Stack != "":
		info.Message, _, _ = strings.Cut(info.Stack, "\n")
	}

	return info
}

func wantsDiff(err *engine.Error) bool {
	if err.ShowDiff != nil && !*err.ShowDiff {
		return false
	}
	if err.Expected == nil {
		return false
	}
	return valueClass(err.Actual) == valueClass(err.Expected)
}

// valueClass groups values the way a dynamically typed runtime would
// report their type: all numbers alike, all lists alike, all records alike
func valueClass(v any) string {
	if v == nil {
		return "undefined"
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "null"
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Func:
		return "function"
	default:
		return rv.Kind().String()
	}
}

// displayValue returns strings unchanged and the canonical JSON form of
// anything else
func displayValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Stringify(v)
}

// Stringify renders a non-string value in a canonical, diff-friendly form
func Stringify(v any) string {
	out, err := safejson.Marshal(v, "  ")
	if err != nil {
		return "[unserializable]"
	}
	return out
}
