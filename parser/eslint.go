package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corymhall/jxalsp/issue"
)

// ESLintSource is the source given to issues parsed from ESLint output.
const ESLintSource = "ESLint"

type eslintMessage struct {
	RuleID    string `json:"ruleId"`
	Severity  int    `json:"severity"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Fatal     bool   `json:"fatal"`
}

type eslintResult struct {
	FilePath            string          `json:"filePath"`
	Messages            []eslintMessage `json:"messages"`
	ErrorCount          int             `json:"errorCount"`
	WarningCount        int             `json:"warningCount"`
	FixableErrorCount   int             `json:"fixableErrorCount"`
	FixableWarningCount int             `json:"fixableWarningCount"`
}

// ESLintSummary holds the totals ESLint reports alongside its messages.
type ESLintSummary struct {
	ErrorCount          int
	WarningCount        int
	FixableErrorCount   int
	FixableWarningCount int
}

// Message renders the summary, e.g.
// "ESLint reports 1 error (of 3) and 0 warnings (of 2) as fixable."
func (s ESLintSummary) Message() string {
	if s.ErrorCount+s.WarningCount == 0 {
		return ""
	}
	plural := func(word string, n int) string {
		if n == 1 {
			return word
		}
		return word + "s"
	}
	parts := []string{"ESLint reports"}
	if s.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d %s (of %d)", s.FixableErrorCount, plural("error", s.FixableErrorCount), s.ErrorCount))
	}
	if s.ErrorCount > 0 && s.WarningCount > 0 {
		parts = append(parts, "and")
	}
	if s.WarningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d %s (of %d)", s.FixableWarningCount, plural("warning", s.FixableWarningCount), s.WarningCount))
	}
	parts = append(parts, "as fixable.")
	return strings.Join(parts, " ")
}

// ParseESLintJSON parses the output of `eslint --format json`. Blank input
// yields no issues; malformed input is an error.
func ParseESLintJSON(data []byte) (issue.IssueSet, ESLintSummary, error) {
	var summary ESLintSummary
	issues := issue.IssueSet{}
	if len(bytes.TrimSpace(data)) == 0 {
		return issues, summary, nil
	}

	var results []eslintResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, summary, fmt.Errorf("parsing ESLint JSON output: %w", err)
	}

	for _, r := range results {
		summary.ErrorCount += r.ErrorCount
		summary.WarningCount += r.WarningCount
		summary.FixableErrorCount += r.FixableErrorCount
		summary.FixableWarningCount += r.FixableWarningCount

		for _, m := range r.Messages {
			i := issue.Issue{
				Source:    ESLintSource,
				Message:   m.Message,
				Code:      m.RuleID,
				Line:      m.Line,
				Column:    m.Column,
				EndLine:   m.EndLine,
				EndColumn: m.EndColumn,
				Severity:  issue.Warning,
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
			if m.Fatal || m.Severity == 2 {
				i.Severity = issue.Error
			}
			issues = append(issues, i)
		}
	}
	return issues, summary, nil
}
