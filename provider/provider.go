// Package provider adapts external linters to a common interface. Each
// provider decides whether it can run in a workspace and for a document, and
// turns the linter's output into issues.
package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
)

// Source is used for the informational issues the server itself adds.
const Source = "jxalsp"

// Document is a snapshot of an open document.
type Document struct {
	URI lsp.DocumentURI
	// Path is empty for documents that have never been saved.
	Path string
	Text string
}

// Workspace is the folder the server was started for, with the settings in
// effect for it.
type Workspace struct {
	Root     string
	Settings config.Settings
}

// Contains reports whether path lies inside the workspace root.
func (w *Workspace) Contains(path string) bool {
	if w.Root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return false
	}
	return rel != path && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PackageJSON holds the parts of package.json the providers look at.
type PackageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	ESLintConfig    json.RawMessage   `json:"eslintConfig"`
}

// DependsOn reports whether name is a dependency or dev dependency.
func (p *PackageJSON) DependsOn(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// PackageJSON reads package.json from the root. ok is false when the file is
// missing or unreadable.
func (w *Workspace) PackageJSON() (*PackageJSON, bool) {
	if w.Root == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(w.Root, "package.json"))
	if err != nil {
		return nil, false
	}
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, false
	}
	return &pkg, true
}

// A Provider lints documents with one external tool.
type Provider interface {
	Name() string
	// CanSetup reports whether the provider's preconditions hold in ws. It
	// must not change anything on disk.
	CanSetup(ws *Workspace) bool
	CanLint(ws *Workspace, doc Document) bool
	// OnChange lints the in-memory text of doc.
	OnChange(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error)
	// OnSave lints the saved file of doc.
	OnSave(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error)
}

// A Disposer owns resources, such as scratch directories, to release on
// shutdown.
type Disposer interface {
	Dispose() error
}

// withInfo appends the informational issue unless the set is empty or the
// user hid informational issues.
func withInfo(ws *Workspace, issues issue.IssueSet, message string) issue.IssueSet {
	if len(issues) == 0 || message == "" || ws.Settings.HideInfo {
		return issues
	}
	return append(issues, issue.NewInfo(Source, message))
}
