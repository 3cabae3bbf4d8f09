package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/process"
)

// activate makes the bundled scripts executable. Packaging can drop the
// execute bits, and the jxabuild provider is skipped without them. The first
// failure of a session is shown to the user; later ones are only logged.
func (s *server) activate(ctx context.Context) {
	if s.config.BinDir == "" {
		debug.Debug.Log(ctx, "no bundled scripts configured")
		return
	}
	changed, err := process.MakeExecutable(s.config.JXABuild(), s.config.JXARun())
	if err == nil {
		if changed > 0 {
			debug.Info.Log(ctx, "made bundled scripts executable", slog.Int("changed", changed))
		}
		return
	}

	s.activationMu.Lock()
	shown := s.activationShown
	s.activationShown = true
	s.activationMu.Unlock()

	err = fmt.Errorf("JXA activation failed: %w", err)
	if shown {
		debug.LogError(ctx, "activation", err)
		return
	}
	s.showError(ctx, err)
}
