package provider

import (
	"context"
	"fmt"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/process"
	"golang.org/x/time/rate"
)

// JXABuild compiles documents with the bundled jxabuild wrapper around
// osacompile.
type JXABuild struct {
	runner  *process.Runner
	binary  string
	scratch string
	logOnce rate.Sometimes
}

func NewJXABuild(runner *process.Runner, binary, scratch string) *JXABuild {
	return &JXABuild{
		runner:  runner,
		binary:  binary,
		scratch: scratch,
		logOnce: rate.Sometimes{First: 1},
	}
}

func (p *JXABuild) Name() string { return "jxabuild" }

func (p *JXABuild) CanSetup(*Workspace) bool {
	var reason error
	if !process.IsExecutable(p.binary) {
		reason = fmt.Errorf("osacompile script wrapper %s is not an executable file", p.binary)
	} else {
		reason = scratchUsable(p.scratch)
	}
	if reason != nil {
		p.logOnce.Do(func() {
			debug.Warning.Log(context.Background(), "jxabuild provider unavailable", "reason", reason)
		})
		return false
	}
	return true
}

func (p *JXABuild) CanLint(*Workspace, Document) bool { return true }

func (p *JXABuild) command(arg string) process.Command {
	return process.Command{
		Path: p.binary,
		Args: []string{arg},
		Env:  []string{"JXABUILD_DIR=" + p.scratch, "JXABUILD_FORMAT=scpt"},
	}
}

func (p *JXABuild) OnChange(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	cmd := p.command("-")
	cmd.Stdin = []byte(doc.Text)
	return compile(ctx, p.runner, ws, cmd, doc.Text)
}

func (p *JXABuild) OnSave(ctx context.Context, ws *Workspace, doc Document) (issue.IssueSet, error) {
	if doc.Path == "" {
		return p.OnChange(ctx, ws, doc)
	}
	return compile(ctx, p.runner, ws, p.command(doc.Path), doc.Text)
}

// Dispose removes the build directory jxabuild writes into.
func (p *JXABuild) Dispose() error {
	return removeScratch(p.scratch)
}
