package server

import (
	"testing"

	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/parser"
	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProtocolDiagnostics(t *testing.T) {
	got := toProtocolDiagnostics(issue.IssueSet{
		{Source: "eslint", Message: "'x' is not defined. ", Code: "no-undef", Line: 2, Column: 5, EndLine: 2, EndColumn: 6, Severity: issue.Error},
		{Source: "osacompile", Message: "Expected expression", Code: issue.ParsingErrorCode, Line: 3, Column: 9, EndLine: 1, EndColumn: 1, Severity: issue.Warning},
		issue.NewInfo("jxalsp", "Linting not available."),
	})
	autogold.Expect([]lsp.Diagnostic{
		{
			Range: lsp.Range{
				Start: lsp.Position{Line: 1, Character: 4},
				End:   lsp.Position{Line: 1, Character: 5},
			},
			Severity: 1,
			Code:     "no-undef",
			Source:   "eslint",
			Message:  "'x' is not defined.",
		},
		{
			Range: lsp.Range{
				Start: lsp.Position{Line: 2, Character: 8},
				End:   lsp.Position{Line: 2, Character: 8},
			},
			Severity: 2,
			Code:     "Parsing Error",
			Source:   "osacompile",
			Message:  "Expected expression",
		},
		{
			Severity: 3,
			Source:   "jxalsp",
			Message:  "Linting not available.",
		},
	}).Equal(t, got)
}

func TestZeroBased(t *testing.T) {
	assert.Equal(t, uint32(0), zeroBased(1))
	assert.Equal(t, uint32(41), zeroBased(42))
	assert.Equal(t, uint32(0), zeroBased(0))
	assert.Equal(t, uint32(0), zeroBased(-3))
}

func TestWiden(t *testing.T) {
	r, err := parser.NewRanger()
	require.NoError(t, err)
	s := &server{ranger: r}
	t.Cleanup(r.Close)

	src := []byte("const answer = missing(1);\n")
	set := issue.IssueSet{
		{Message: "point", Line: 1, Column: 7, EndLine: 1, EndColumn: 7},
		{Message: "ranged", Line: 1, Column: 1, EndLine: 1, EndColumn: 3},
		issue.NewInfo("jxalsp", "whole document"),
	}
	got := s.widen(src, set)
	assert.Equal(t, 13, got[0].EndColumn)
	assert.Equal(t, 3, got[1].EndColumn)
	assert.True(t, got[2].IsDocumentLevel())
	assert.Equal(t, 7, set[0].EndColumn, "input is left alone")

	assert.Equal(t, set, s.widen(nil, set))
}

func TestRelevant(t *testing.T) {
	for name, want := range map[string]bool{
		"/work/.jxa.toml":         true,
		"/work/package.json":      true,
		"/work/.eslintrc.json":    true,
		"/work/.eslintrc":         true,
		"/work/eslint.config.mjs": true,
		"/work/script.js":         false,
		"/work/package-lock.json": false,
	} {
		assert.Equal(t, want, Relevant(name), name)
	}
}
