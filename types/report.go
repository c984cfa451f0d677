package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Percent is a percentage with one decimal place. Values that are not
// finite (a zero denominator) serialize as null instead of being coerced.
type Percent float64

// IsFinite reports whether p holds a real percentage
func (p Percent) IsFinite() bool {
	f := float64(p)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (p Percent) String() string {
	if !p.IsFinite() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(p), 'f', 1, 64)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.IsFinite() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(p))
}

func (p *Percent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Percent(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Percent(f)
	return nil
}

// DiffSegment is one run of an inline diff
type DiffSegment struct {
	Value   string `json:"value"`
	Added   bool   `json:"added,omitempty"`
	Removed bool   `json:"removed,omitempty"`
	Count   int    `json:"count"`
}

// DiffResult holds either a unified diff text or inline segments and
// serializes as a JSON string or array respectively
type DiffResult struct {
	Unified string
	Inline  []DiffSegment
}

// IsInline reports whether the diff is made of inline segments
func (d *DiffResult) IsInline() bool {
	return d.Inline != nil
}

func (d DiffResult) MarshalJSON() ([]byte, error) {
	if d.Inline != nil {
		return json.Marshal(d.Inline)
	}
	return json.Marshal(d.Unified)
}

func (d *DiffResult) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &d.Inline)
	}
	return json.Unmarshal(data, &d.Unified)
}

// ErrorInfo is the normalized failure of a test or hook
type ErrorInfo struct {
	Message string      `json:"message,omitempty"`
	Stack   string      `json:"estack,omitempty"`
	Diff    *DiffResult `json:"diff,omitempty"`
}

// TestNode is the serializable record of one test or hook. Parent linkage
// is kept by id only.
type TestNode struct {
	Title      string     `json:"title"`
	FullTitle  string     `json:"fullTitle"`
	TimedOut   bool       `json:"timedOut"`
	Duration   int64      `json:"duration"` // milliseconds
	State      string     `json:"state,omitempty"`
	Speed      string     `json:"speed,omitempty"`
	Pass       bool       `json:"pass"`
	Fail       bool       `json:"fail"`
	Pending    bool       `json:"pending"`
	Skipped    bool       `json:"skipped"`
	Context    string     `json:"context,omitempty"`
	Code       string     `json:"code"`
	Err        *ErrorInfo `json:"err,omitempty"`
	IsRoot     bool       `json:"isRoot"`
	UUID       string     `json:"uuid"`
	ParentUUID string     `json:"parentUUID,omitempty"`
	IsHook     bool       `json:"isHook"`
}

// SuiteNode is the serializable record of one suite
type SuiteNode struct {
	UUID        string       `json:"uuid"`
	Title       string       `json:"title"`
	FullFile    string       `json:"fullFile"`
	File        string       `json:"file"`
	BeforeHooks []*TestNode  `json:"beforeHooks"`
	AfterHooks  []*TestNode  `json:"afterHooks"`
	Tests       []*TestNode  `json:"tests"`
	Suites      []*SuiteNode `json:"suites"`
	Passes      []string     `json:"passes"`
	Failures    []string     `json:"failures"`
	Pending     []string     `json:"pending"`
	Skipped     []string     `json:"skipped"`
	Duration    int64        `json:"duration"` // milliseconds
	Root        bool         `json:"root"`
	RootEmpty   bool         `json:"rootEmpty"`
	Timeout     int64        `json:"_timeout"` // milliseconds
}

// IsEmpty reports whether the suite has nothing worth rendering
func (s *SuiteNode) IsEmpty() bool {
	return len(s.Suites) == 0 && len(s.Tests) == 0 &&
		len(s.BeforeHooks) == 0 && len(s.AfterHooks) == 0
}

// RunStats are the run-wide totals of a report
type RunStats struct {
	Suites              int     `json:"suites"`
	Tests               int     `json:"tests"`
	Passes              int     `json:"passes"`
	Pending             int     `json:"pending"`
	Failures            int     `json:"failures"`
	Start               string  `json:"start,omitempty"`
	End                 string  `json:"end,omitempty"`
	Duration            int64   `json:"duration"` // milliseconds
	TestsRegistered     int     `json:"testsRegistered"`
	PassPercent         Percent `json:"passPercent"`
	PendingPercent      Percent `json:"pendingPercent"`
	Other               int     `json:"other"`
	HasOther            bool    `json:"hasOther"`
	Skipped             int     `json:"skipped"`
	HasSkipped          bool    `json:"hasSkipped"`
	PassPercentClass    string  `json:"passPercentClass"`
	PendingPercentClass string  `json:"pendingPercentClass"`
}

// ReportObject is the single artifact handed to a report generator. The
// suites field holds the root suite; its own suites are the top-level ones.
type ReportObject struct {
	Stats         RunStats   `json:"stats"`
	Suites        *SuiteNode `json:"suites"`
	CopyrightYear int        `json:"copyrightYear"`
}
