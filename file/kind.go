package file

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corymhall/jxalsp/lsp"
)

// Kind describes the kind of the file in question.
type Kind int

const (
	// UnknownKind is a file type we don't lint.
	UnknownKind = Kind(iota)

	// JavaScript is a plain JavaScript file, which may hold JXA.
	JavaScript

	// JXA is a file the editor marked as JavaScript for Automation.
	JXA
)

func (k Kind) String() string {
	switch k {
	case UnknownKind:
		return "unknown"
	case JavaScript:
		return "javascript"
	case JXA:
		return "jxa"
	default:
		return fmt.Sprintf("internal error: unknown file kind %d", k)
	}
}

// KindForLang returns the [Kind] associated with the given LSP LanguageKind
// string from the LanguageID field of [lsp.TextDocumentItem], or UnknownKind
// if the language is not one we lint.
func KindForLang(langID lsp.LanguageKind) Kind {
	switch strings.ToLower(string(langID)) {
	case "javascript":
		return JavaScript
	case "jxa", "javascript-jxa":
		return JXA
	default:
		return UnknownKind
	}
}

// KindForPath guesses the kind from a file extension.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return JavaScript
	case ".jxa":
		return JXA
	default:
		return UnknownKind
	}
}

// KindFor prefers the editor's language and falls back to the extension.
func KindFor(langID lsp.LanguageKind, uri lsp.DocumentURI) Kind {
	if k := KindForLang(langID); k != UnknownKind {
		return k
	}
	return KindForPath(uri.Path())
}
