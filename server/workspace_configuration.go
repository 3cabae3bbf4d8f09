package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/xcontext"
	"golang.org/x/sync/errgroup"
)

// configSection is the settings section the server reads from the client.
const configSection = "jxa.linting"

func (s *server) DidChangeConfiguration(ctx context.Context, params *lsp.DidChangeConfigurationParams) error {
	ctx, done := debug.Start(ctx, "workspace.didChangeConfiguration")
	defer done()

	layer, err := config.DecodeGlobal(params.Settings)
	if err != nil {
		s.showError(ctx, err)
		return err
	}
	if layer == (config.Layer{}) && s.pullConfiguration {
		// Clients that support pulling often send an empty notification as a
		// hint to ask again.
		go s.fetchConfiguration(xcontext.Detach(ctx))
		return nil
	}
	s.applyGlobal(ctx, layer, FromDidChangeConfiguration)
	return nil
}

// fetchConfiguration asks the client for the settings section and applies
// it.
func (s *server) fetchConfiguration(ctx context.Context) {
	section := configSection
	res, err := s.client.Configuration(ctx, &lsp.ParamConfiguration{
		Items: []lsp.ConfigurationItem{{Section: &section}},
	})
	if err != nil {
		debug.LogError(ctx, "error fetching configuration", err)
		return
	}
	if len(res) == 0 {
		return
	}
	raw, err := json.Marshal(res[0])
	if err != nil {
		debug.LogError(ctx, "error encoding configuration", err)
		return
	}
	layer, err := config.DecodeSection(raw)
	if err != nil {
		s.showError(ctx, err)
		return
	}
	s.applyGlobal(ctx, layer, FromDidChangeConfiguration)
}

func (s *server) applyGlobal(ctx context.Context, layer config.Layer, cause ModificationSource) {
	before, after := s.currentView().SetGlobal(layer)
	s.settingsChanged(ctx, before, after, cause)
}

// workspaceFileChanged is called by the watcher when a file that decides
// which providers can run has changed.
func (s *server) workspaceFileChanged(ctx context.Context, name string) {
	ctx, done := debug.Start(ctx, "workspace.fileChanged", slog.String("file", name))
	defer done()
	if !s.initialized() {
		return
	}
	before, after, err := s.currentView().LoadWorkspaceFile(ctx)
	if err != nil {
		s.showError(ctx, err)
	}
	s.settingsChanged(ctx, before, after, FromWorkspaceFile)
}

// settingsChanged recomputes the active providers and relints every open
// document with the new settings. Switching linting off clears all issues.
func (s *server) settingsChanged(ctx context.Context, before, after config.Settings, cause ModificationSource) {
	debug.Info.Log(ctx, "settings changed",
		slog.String("cause", cause.String()),
		slog.String("mode", string(after.Mode)),
		slog.Bool("hideInfo", after.HideInfo),
	)
	s.activate(ctx)
	s.reconfigure(ctx)
	if after.Mode == config.ModeOff {
		if before.Mode != config.ModeOff {
			s.assistant.Clear(ctx)
		}
		return
	}
	s.relintAll(ctx, after.Mode, cause)
}

// relintAll lints every open document, at most MaxConcurrentRuns at a time,
// under a cancellable progress report. Run indexes are taken before it
// returns.
func (s *server) relintAll(ctx context.Context, mode config.Mode, cause ModificationSource) {
	var runs []*run
	for _, fh := range s.overlays.Handles() {
		if fh.Kind() == file.UnknownKind {
			continue
		}
		t, ok := trigger(mode, cause, fh)
		if !ok {
			continue
		}
		r, ok := s.assistant.begin(ctx, t, document(fh))
		if !ok {
			return
		}
		runs = append(runs, r)
	}
	if len(runs) == 0 {
		return
	}

	s.assistant.background(ctx, func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		work := s.progress.Start(ctx, "JXA", "Linting all documents", cancel)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, s.config.MaxConcurrentRuns))
		for _, r := range runs {
			g.Go(func() error {
				_, _ = s.assistant.finish(gctx, r)
				return nil
			})
		}
		_ = g.Wait()

		msg := fmt.Sprintf("Linted %d documents.", len(runs))
		if ctx.Err() != nil {
			msg = "Cancelled."
		}
		work.End(ctx, msg)
	})
}

func (s *server) WorkDoneProgressCancel(ctx context.Context, params *lsp.WorkDoneProgressCancelParams) error {
	return s.progress.Cancel(params.Token)
}
