package server

import (
	"context"
	"log/slog"
	"strings"

	"fortio.org/safecast"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
)

// publish sends the issues currently held for uri. A URI with no entry is
// published with an empty list, which clears it in the editor.
func (s *server) publish(ctx context.Context, uri lsp.DocumentURI) {
	set, _ := s.issues.Get(uri)
	params := &lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []lsp.Diagnostic{},
	}
	var src []byte
	if fh, ok := s.overlays.Get(uri); ok {
		version := fh.Version()
		params.Version = &version
		src = fh.Content()
	}
	if len(set) > 0 {
		params.Diagnostics = toProtocolDiagnostics(s.widen(src, set))
	}
	if err := s.client.PublishDiagnostics(ctx, params); err != nil {
		debug.LogError(ctx, "error publishing diagnostics", err)
		return
	}
	debug.Trace.Log(ctx, "published diagnostics", slog.String("uri", string(uri)), slog.Int("count", len(params.Diagnostics)))
}

// widen gives point issues the extent of the token they point at, so the
// editor has something to underline.
func (s *server) widen(src []byte, set issue.IssueSet) issue.IssueSet {
	if s.ranger == nil || len(src) == 0 {
		return set
	}
	out := make(issue.IssueSet, len(set))
	for i, is := range set {
		if !is.IsDocumentLevel() && is.IsPoint() {
			if endLine, endColumn, ok := s.ranger.Widen(src, is.Line, is.Column); ok {
				is.EndLine, is.EndColumn = endLine, endColumn
			}
		}
		out[i] = is
	}
	return out
}

func toProtocolDiagnostics(set issue.IssueSet) []lsp.Diagnostic {
	reports := make([]lsp.Diagnostic, 0, len(set))
	for _, is := range set {
		reports = append(reports, lsp.Diagnostic{
			Range:    toProtocolRange(is),
			Severity: toProtocolSeverity(is.Severity),
			Code:     is.Code,
			Source:   is.Source,
			Message:  strings.TrimSpace(is.Message),
		})
	}
	return reports
}

func toProtocolRange(is issue.Issue) lsp.Range {
	if is.IsDocumentLevel() {
		return lsp.Range{}
	}
	start := toProtocolPosition(is.Line, is.Column)
	end := toProtocolPosition(is.EndLine, is.EndColumn)
	if end.Line < start.Line || (end.Line == start.Line && end.Character < start.Character) {
		end = start
	}
	return lsp.Range{Start: start, End: end}
}

// toProtocolPosition converts a 1-based position to a 0-based one, clamping
// at zero.
func toProtocolPosition(line, column int) lsp.Position {
	return lsp.Position{Line: zeroBased(line), Character: zeroBased(column)}
}

func zeroBased(n int) uint32 {
	v, err := safecast.Conv[uint32](n - 1)
	if err != nil {
		return 0
	}
	return v
}

func toProtocolSeverity(s issue.Severity) lsp.DiagnosticSeverity {
	switch s {
	case issue.Error:
		return lsp.SeverityError
	case issue.Warning:
		return lsp.SeverityWarning
	default:
		return lsp.SeverityInformation
	}
}
