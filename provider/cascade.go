package provider

import (
	"errors"
	"path/filepath"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/process"
)

// Cascade is an ordered list of providers. The first one that can lint a
// document wins.
type Cascade []Provider

// DefaultCascade returns ESLint, then the bundled jxabuild wrapper, then
// osacompile itself.
func DefaultCascade(runner *process.Runner, cfg config.Server) Cascade {
	return Cascade{
		NewESLint(runner),
		NewJXABuild(runner, cfg.JXABuild(), filepath.Join(cfg.ScratchDir, "jxabuild.tmp")),
		NewOSACompile(runner, cfg.OSACompile, filepath.Join(cfg.ScratchDir, "osacompile.tmp")),
	}
}

// Available filters the providers whose preconditions hold in ws, keeping
// their order.
func (c Cascade) Available(ws *Workspace) Cascade {
	var out Cascade
	for _, p := range c {
		if p.CanSetup(ws) {
			out = append(out, p)
		}
	}
	return out
}

// Select returns the first provider able to lint doc.
func (c Cascade) Select(ws *Workspace, doc Document) (Provider, bool) {
	for _, p := range c {
		if p.CanLint(ws, doc) {
			return p, true
		}
	}
	return nil, false
}

// Dispose releases the resources of every provider that holds some.
func (c Cascade) Dispose() error {
	var errs []error
	for _, p := range c {
		if d, ok := p.(Disposer); ok {
			errs = append(errs, d.Dispose())
		}
	}
	return errors.Join(errs...)
}
