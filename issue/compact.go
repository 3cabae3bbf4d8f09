package issue

import (
	"strconv"
	"strings"
)

// FormatCompact renders an issue as a single line of the compact grammar
//
//	path:line:column:endLine:endColumn:severity:message [code]
//
// The code suffix is left out when the issue has no rule code.
func FormatCompact(path string, i Issue) string {
	var b strings.Builder
	b.WriteString(path)
	for _, n := range []int{i.Line, i.Column, i.EndLine, i.EndColumn} {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte(':')
	b.WriteString(i.Severity.String())
	b.WriteByte(':')
	b.WriteString(strings.ReplaceAll(i.Message, "\n", " "))
	if i.Code != "" && i.Code != ParsingErrorCode {
		b.WriteString(" [")
		b.WriteString(i.Code)
		b.WriteByte(']')
	}
	return b.String()
}
