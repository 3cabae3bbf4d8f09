package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/parser"
	"github.com/corymhall/jxalsp/process"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const osacompileInfo = "Linting provided by osacompile."

// compile runs an osacompile-style command and reads the diagnostics it
// prints on stderr. A zero exit status means the script compiled cleanly.
func compile(ctx context.Context, runner *process.Runner, ws *Workspace, cmd process.Command, text string) (issue.IssueSet, error) {
	lines := parser.NewLineParser(parser.NewOSACompile([]byte(text)))
	code, err := runner.Lines(ctx, cmd, func(line string) {
		debug.Trace.Log(ctx, "compiler stdout", "line", line)
	}, lines.PushLine)
	if err != nil {
		return nil, err
	}
	if code == 0 {
		return issue.IssueSet{}, nil
	}
	return withInfo(ws, lines.Issues(), osacompileInfo), nil
}

// scratchUsable reports whether dir is absent, in which case it is created
// on first use, or a writable directory.
func scratchUsable(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("temporary build path %s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("temporary build directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func removeScratch(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return os.RemoveAll(dir)
}

// OSACompile compiles documents with osacompile directly into a throwaway
// .scpt file.
type OSACompile struct {
	runner  *process.Runner
	binary  string
	scratch string
	logOnce rate.Sometimes
}

func NewOSACompile(runner *process.Runner, binary, scratch string) *OSACompile {
	return &OSACompile{
		runner:  runner,
		binary:  binary,
		scratch: scratch,
		logOnce: rate.Sometimes{First: 1},
	}
}

func (p *OSACompile) Name() string { return "osacompile" }

func (p *OSACompile) CanSetup(*Workspace) bool {
	var reason error
	if !process.IsExecutable(p.binary) {
		reason = fmt.Errorf("%s is not an executable file", p.binary)
	} else {
		reason = scratchUsable(p.scratch)
	}
	if reason != nil {
		p.logOnce.Do(func() {
			debug.Warning.Log(context.Background(), "osacompile provider unavailable", "reason", reason)
		})
		return false
	}
	return true
}

func (p *OSACompile) CanLint(*Workspace, Document) bool { return true }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (p *OSACompile) output(doc Document) string {
	base := filepath.Base(doc.Path)
	if doc.Path == "" {
		base = unsafeName.ReplaceAllString(doc.URI.Opaque(), "_")
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "untitled"
	}
	return filepath.Join(p.scratch, fmt.Sprintf("%s.%s.scpt", base, uuid.NewString()))
}

func (p *OSACompile) run(ctx context.Context, ws *Workspace, doc Document, input string) (issue.IssueSet, error) {
	if err := os.MkdirAll(p.scratch, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	out := p.output(doc)
	defer func() {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			debug.LogError(ctx, "removing compiled script", err)
		}
	}()
	cmd := process.Command{
		Path: p.binary,
		Args: []string{"-l", "JavaScript", "-o", out, input},
	}
	if input == "-" {
		cmd.Stdin = []byte(doc.Text)
	}
	return compile(ctx, p.runner, ws, cmd, doc.Text)
}

func (p *OSACompile) OnChange(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	return p.run(ctx, ws, doc, "-")
}

func (p *OSACompile) OnSave(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	if doc.Path == "" {
		return p.run(ctx, ws, doc, "-")
	}
	return p.run(ctx, ws, doc, doc.Path)
}

func (p *OSACompile) Dispose() error {
	return removeScratch(p.scratch)
}
