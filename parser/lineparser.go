package parser

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"github.com/corymhall/jxalsp/issue"
)

// LineParser accumulates the issues recognized by a Matcher over a stream
// of lines. Lines the matcher does not recognize are skipped. Use a fresh
// parser, or Clear, for every run.
type LineParser struct {
	matcher Matcher
	issues  issue.IssueSet
}

func NewLineParser(m Matcher) *LineParser {
	return &LineParser{matcher: m}
}

func (p *LineParser) PushLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	if i, ok := p.matcher.Match(line); ok {
		p.issues = append(p.issues, i)
	}
}

// Issues returns the issues recognized so far.
func (p *LineParser) Issues() issue.IssueSet {
	if p.issues == nil {
		return issue.IssueSet{}
	}
	return slices.Clone(p.issues)
}

func (p *LineParser) Clear() {
	p.issues = nil
}

// Consume pushes every line read from r.
func (p *LineParser) Consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		p.PushLine(scanner.Text())
	}
	return scanner.Err()
}
