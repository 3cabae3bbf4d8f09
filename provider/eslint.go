package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/parser"
	"github.com/corymhall/jxalsp/process"
)

// ESLint lints with the project's ESLint installation.
type ESLint struct {
	runner *process.Runner
}

func NewESLint(runner *process.Runner) *ESLint {
	return &ESLint{runner: runner}
}

func (p *ESLint) Name() string { return "eslint" }

// CanSetup is always true; ESLint may be installed or configured at any time.
func (p *ESLint) CanSetup(*Workspace) bool { return true }

func (p *ESLint) CanLint(ws *Workspace, doc Document) bool {
	if doc.Path != "" && !ws.Contains(doc.Path) {
		return false
	}
	return hasESLintConfig(ws)
}

func hasESLintConfig(ws *Workspace) bool {
	if ws.Root == "" {
		return false
	}
	if entries, err := os.ReadDir(ws.Root); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".eslintrc.") {
				return true
			}
		}
	}
	pkg, ok := ws.PackageJSON()
	return ok && len(pkg.ESLintConfig) > 0 && string(pkg.ESLintConfig) != "null"
}

// command resolves how to start ESLint: the configured binary as is, the
// project-local install through npx, or whatever `eslint` the shell finds.
func (p *ESLint) command(ws *Workspace, args ...string) process.Command {
	if bin := ws.Settings.ESLintBinary; bin != "" {
		return process.Command{Path: bin, Args: args, Dir: ws.Root}
	}
	if pkg, ok := ws.PackageJSON(); ok && pkg.DependsOn("eslint") {
		return process.Command{
			Path:  "npx",
			Args:  append([]string{"--no-install", "eslint"}, args...),
			Dir:   ws.Root,
			Shell: true,
		}
	}
	return process.Command{Path: "eslint", Args: args, Dir: ws.Root, Shell: true}
}

func (p *ESLint) OnChange(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	file := doc.Path
	if file == "" {
		file = filepath.Join(ws.Root, doc.URI.Opaque())
	}
	cmd := p.command(ws, "--format", "json", "--stdin", "--stdin-filename", file)
	cmd.Stdin = []byte(doc.Text)
	return p.run(ctx, ws, cmd)
}

func (p *ESLint) OnSave(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	if doc.Path == "" {
		return nil, fmt.Errorf("cannot lint unsaved document %s on save", doc.URI)
	}
	return p.run(ctx, ws, p.command(ws, "--format", "json", doc.Path))
}

func (p *ESLint) run(ctx context.Context, ws *Workspace, cmd process.Command) (issue.IssueSet, error) {
	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	// ESLint exits 1 when it found problems and 2 when it failed.
	if res.ExitCode > 1 || res.ExitCode < 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "Unexpected ESLint failure"
		}
		return nil, errors.New(msg)
	}
	if len(res.Stderr) > 0 {
		debug.Warning.Log(ctx, "eslint stderr", "output", strings.TrimSpace(string(res.Stderr)))
	}
	issues, summary, err := parser.ParseESLintJSON(res.Stdout)
	if err != nil {
		return nil, err
	}
	return withInfo(ws, issues, summary.Message()), nil
}
