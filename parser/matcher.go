// Package parser turns the raw output of linter backends into issues.
//
// Two families are provided: line matchers fed incrementally through a
// LineParser while a subprocess streams its output, and ParseESLintJSON for
// the structured report ESLint prints once it exits.
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"unicode/utf16"

	"github.com/corymhall/jxalsp/issue"
)

// A Matcher recognizes a single line of linter output.
type Matcher interface {
	Match(line string) (issue.Issue, bool)
}

// compactPattern is the compact grammar
//
//	path:line:column:endLine:endColumn:severity:message [code]
var compactPattern = regexp.MustCompile(`^(.+?):(\d+):(\d+):(\d+):(\d+):((?i:error|warning|info)):(.*?)(?: \[([^\[\]]+)\])?$`)

// Compact matches the compact grammar printed by `jxalsp lint` and the
// compact ESLint formatter.
type Compact struct {
	Source string
}

func (m Compact) Match(line string) (issue.Issue, bool) {
	sub := compactPattern.FindStringSubmatch(line)
	if sub == nil {
		return issue.Issue{}, false
	}
	n := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	i := issue.Issue{
		Source:    m.Source,
		Message:   sub[7],
		Code:      sub[8],
		Line:      n(sub[2]),
		Column:    n(sub[3]),
		EndLine:   n(sub[4]),
		EndColumn: n(sub[5]),
		Severity:  issue.ParseSeverity(sub[6]),
	}
	if i.Code == "" {
		i.Code = issue.ParsingErrorCode
	}
	if i.EndLine == 0 {
		i.EndLine = i.Line
	}
	if i.EndColumn == 0 {
		i.EndColumn = i.Column
	}
	return i, true
}

// osacompilePattern matches the stderr of osacompile and the jxabuild
// wrapper:
//
//	-:105:106: script error: Expected expression but found “)”. (-2741)
var osacompilePattern = regexp.MustCompile(`^(.+?):(\d+):(\d+): (script error|error|warning): (.*?)(?: \((-?\d+)\))?$`)

// OSACompile matches osacompile diagnostics. osacompile reports character
// offsets into the compiled source rather than line and column, so the
// matcher is bound to the text that was compiled.
type OSACompile struct {
	Source string
	// starts holds the UTF-16 offset at which each line begins.
	starts []int
}

// NewOSACompile returns a matcher resolving offsets against src.
func NewOSACompile(src []byte) *OSACompile {
	starts := []int{0}
	units := 0
	for _, r := range string(src) {
		units += utf16.RuneLen(r)
		if r == '\n' {
			starts = append(starts, units)
		}
	}
	return &OSACompile{Source: "osacompile", starts: starts}
}

// position converts a 0-based character offset into a 1-based line and
// column.
func (m *OSACompile) position(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > offset }) - 1
	return i + 1, offset - m.starts[i] + 1
}

func (m *OSACompile) Match(line string) (issue.Issue, bool) {
	sub := osacompilePattern.FindStringSubmatch(line)
	if sub == nil {
		return issue.Issue{}, false
	}
	start, _ := strconv.Atoi(sub[2])
	end, _ := strconv.Atoi(sub[3])
	if end < start {
		end = start
	}
	i := issue.Issue{
		Source:   m.Source,
		Message:  sub[5],
		Code:     sub[6],
		Severity: issue.ParseSeverity(sub[4]),
	}
	i.Line, i.Column = m.position(start)
	i.EndLine, i.EndColumn = m.position(end)
	if i.Code == "" {
		i.Code = issue.ParsingErrorCode
	}
	return i, true
}
