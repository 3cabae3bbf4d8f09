package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

type DocumentURI string

type LanguageKind string

const fileScheme = "file://"

// IsFile reports whether the URI names a file on disk.
func (uri DocumentURI) IsFile() bool {
	return strings.HasPrefix(string(uri), fileScheme)
}

// Path returns the filesystem path of a file URI, or "" for documents that
// have never been saved (untitled:, unsaved: and similar schemes).
func (uri DocumentURI) Path() string {
	if !uri.IsFile() {
		return ""
	}
	u, err := url.Parse(string(uri))
	if err != nil {
		return filepath.FromSlash(string(uri)[len(fileScheme):])
	}
	path := u.Path
	// file:///C:/x on windows
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}

// Opaque strips the scheme of a non-file URI, e.g. "untitled:Untitled-1"
// becomes "Untitled-1".
func (uri DocumentURI) Opaque() string {
	s := string(uri)
	for _, prefix := range []string{"unsaved://", "untitled:"} {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	if i := strings.Index(s, "://"); i >= 0 {
		return s[i+3:]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func URIFromPath(path string) DocumentURI {
	if path == "" {
		return ""
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return DocumentURI(u.String())
}
