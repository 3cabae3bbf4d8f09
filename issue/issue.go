// Package issue is the normalized diagnostic model shared by every linter
// backend, plus the per-document store the server publishes from.
package issue

import (
	"fmt"
	"strings"
)

// ParsingErrorCode is the code given to issues whose backend did not name a
// rule.
const ParsingErrorCode = "Parsing Error"

type Severity int

const (
	Error Severity = iota + 1
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	}
	return fmt.Sprintf("(unknown severity: %d)", int(s))
}

// ParseSeverity maps a backend severity token onto a Severity.
func ParseSeverity(token string) Severity {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "error", "script error", "fatal", "2":
		return Error
	case "warning", "warn", "1":
		return Warning
	default:
		return Info
	}
}

// Issue is one diagnostic. Lines and columns are 1-based; an issue at line 0,
// column 0 applies to the whole document.
type Issue struct {
	Source    string   `json:"source"`
	Message   string   `json:"message"`
	Code      string   `json:"code"`
	Line      int      `json:"line"`
	Column    int      `json:"column"`
	EndLine   int      `json:"endLine"`
	EndColumn int      `json:"endColumn"`
	Severity  Severity `json:"severity"`
}

// Equal reports whether two issues describe the same diagnostic. Source is
// not compared.
func (i Issue) Equal(o Issue) bool {
	return i.Message == o.Message &&
		i.Code == o.Code &&
		i.Line == o.Line &&
		i.Column == o.Column &&
		i.EndLine == o.EndLine &&
		i.EndColumn == o.EndColumn &&
		i.Severity == o.Severity
}

func (i Issue) IsDocumentLevel() bool {
	return i.Line == 0 && i.Column == 0
}

// IsPoint reports whether the issue covers a single position.
func (i Issue) IsPoint() bool {
	return i.EndLine == i.Line && i.EndColumn == i.Column
}

// NewInfo builds a document-level informational issue.
func NewInfo(source, message string) Issue {
	return Issue{
		Source:   source,
		Message:  message,
		Severity: Info,
	}
}

// IssueSet holds the issues of one document in the order they were reported.
type IssueSet []Issue

// Changed reports whether incoming differs from known. Order is ignored but
// duplicates are counted.
func Changed(known, incoming IssueSet) bool {
	if len(known) != len(incoming) {
		return true
	}
	matched := make([]bool, len(known))
outer:
	for _, in := range incoming {
		for i, k := range known {
			if !matched[i] && k.Equal(in) {
				matched[i] = true
				continue outer
			}
		}
		return true
	}
	return false
}

// Count returns how many issues in the set have severity s.
func (set IssueSet) Count(s Severity) int {
	n := 0
	for _, i := range set {
		if i.Severity == s {
			n++
		}
	}
	return n
}
