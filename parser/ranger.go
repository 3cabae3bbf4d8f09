package parser

import (
	"bytes"
	"fmt"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Ranger widens point issues to the syntax token that starts at the
// reported position. Linters such as osacompile only report where a problem
// begins, which renders as an invisible squiggle in most editors.
type Ranger struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
}

// NewRanger returns a Ranger parsing with the TypeScript grammar, which
// accepts every JavaScript program.
func NewRanger() (*Ranger, error) {
	return NewRangerForLanguage(tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))
}

func NewRangerForLanguage(language *tree_sitter.Language) (*Ranger, error) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return &Ranger{parser: parser}, nil
}

func (r *Ranger) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parser != nil {
		r.parser.Close()
		r.parser = nil
	}
}

// Widen returns the 1-based end of the token starting at line:column in src.
// Columns count UTF-16 code units. ok is false when no token starts exactly
// at the position or the token spans several lines.
func (r *Ranger) Widen(src []byte, line, column int) (endLine, endColumn int, ok bool) {
	if line < 1 || column < 1 {
		return 0, 0, false
	}
	lines := bytes.Split(src, []byte("\n"))
	if line > len(lines) {
		return 0, 0, false
	}
	text := lines[line-1]
	byteCol, inside := utf16ToByte(text, column-1)
	if !inside {
		return 0, 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parser == nil {
		return 0, 0, false
	}
	tree := r.parser.Parse(src, nil)
	if tree == nil {
		return 0, 0, false
	}
	defer tree.Close()

	pt := tree_sitter.Point{Row: uint(line - 1), Column: uint(byteCol)}
	node := tree.RootNode().DescendantForPointRange(pt, pt)
	if node == nil {
		return 0, 0, false
	}
	rng := node.Range()
	if rng.StartPoint != pt || rng.EndPoint.Row != pt.Row {
		return 0, 0, false
	}
	end := byteToUTF16(text, int(rng.EndPoint.Column)) + 1
	if end <= column {
		return 0, 0, false
	}
	return line, end, true
}

// utf16ToByte converts a UTF-16 column into a byte offset within text.
// inside reports whether the column addresses a character of the line.
func utf16ToByte(text []byte, col int) (int, bool) {
	units := 0
	for i := 0; i < len(text); {
		if units == col {
			return i, true
		}
		if units > col {
			return 0, false
		}
		r, size := utf8.DecodeRune(text[i:])
		units += utf16.RuneLen(r)
		i += size
	}
	return 0, false
}

func byteToUTF16(text []byte, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	units := 0
	for i := 0; i < offset; {
		r, size := utf8.DecodeRune(text[i:])
		units += utf16.RuneLen(r)
		i += size
	}
	return units
}
