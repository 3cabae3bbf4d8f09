package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/rpc"
)

// ModificationSource identifies the origin of a change.
type ModificationSource int

const (
	// FromDidOpen is from a didOpen notification.
	FromDidOpen = ModificationSource(iota)

	// FromDidChange is from a didChange notification.
	FromDidChange

	// FromDidSave is from a didSave notification.
	FromDidSave

	// FromDidClose is from a didClose notification.
	FromDidClose

	// FromDidChangeConfiguration is from a didChangeConfiguration notification.
	FromDidChangeConfiguration

	// FromWorkspaceFile refers to a change of a settings file in the
	// workspace root, such as .jxa.toml or package.json.
	FromWorkspaceFile
)

func (m ModificationSource) String() string {
	switch m {
	case FromDidOpen:
		return "didOpen"
	case FromDidChange:
		return "didChange"
	case FromDidSave:
		return "didSave"
	case FromDidClose:
		return "didClose"
	case FromDidChangeConfiguration:
		return "didChangeConfiguration"
	case FromWorkspaceFile:
		return "workspaceFile"
	}
	return fmt.Sprintf("(unknown source: %d)", int(m))
}

func (s *server) didModifyFiles(ctx context.Context, mod file.Modification, cause ModificationSource) error {
	ctx, done := debug.Start(ctx, "textdocument.didModifyFiles",
		slog.String("uri", string(mod.URI)),
		slog.String("cause", cause.String()),
	)
	defer done()
	if !s.initialized() {
		return fmt.Errorf("%w: %v before initialize", rpc.ErrServerNotInitialized, cause)
	}

	if mod.Action == file.Close {
		return s.closeDocument(ctx, mod)
	}
	fh, err := s.overlays.Apply(mod)
	if err != nil {
		return err
	}
	if mod.Action == file.Open {
		s.completeRenameTo(ctx, mod.URI)
	}
	s.lintOn(ctx, fh, cause)
	return nil
}

// trigger picks the provider entry point for a document event under mode.
// ok is false when the event does not lint in that mode.
func trigger(mode config.Mode, cause ModificationSource, fh file.Handle) (Trigger, bool) {
	switch mode {
	case config.ModeOnChange:
		switch cause {
		case FromDidOpen, FromDidChange, FromDidChangeConfiguration, FromWorkspaceFile:
			return OnChange, true
		}
	case config.ModeOnSave:
		switch cause {
		case FromDidSave:
			return OnSave, true
		case FromDidOpen, FromDidChangeConfiguration, FromWorkspaceFile:
			// Only a saved document can be linted from disk.
			return OnSave, fh.URI().Path() != ""
		}
	}
	return OnChange, false
}

// lintOn schedules a lint of fh if the event calls for one.
func (s *server) lintOn(ctx context.Context, fh file.Handle, cause ModificationSource) {
	if fh.Kind() == file.UnknownKind {
		debug.Debug.Log(ctx, "not a JXA document")
		return
	}
	mode := s.assistant.Settings().Mode
	if mode == config.ModeOff {
		// Linting with mode off clears every issue.
		s.assistant.Schedule(ctx, OnChange, document(fh))
		return
	}
	t, ok := trigger(mode, cause, fh)
	if !ok {
		return
	}
	s.assistant.Schedule(ctx, t, document(fh))
}

// closeDocument closes the overlay of mod.URI and drops its issues, unless it
// is the source of a rename in progress. Both happen under the assistant's
// store lock so an in-flight run cannot store issues for the closed document.
func (s *server) closeDocument(ctx context.Context, mod file.Modification) error {
	uri := mod.URI
	var err error
	pending := false
	s.assistant.Hold(func() {
		if _, err = s.overlays.Apply(mod); err != nil {
			return
		}
		s.renameMu.Lock()
		_, pending = s.pendingRenames[uri]
		s.renameMu.Unlock()
		if !pending {
			s.issues.Remove(uri)
		}
	})
	if err != nil {
		return err
	}
	if pending {
		debug.Debug.Log(ctx, "keeping issues of renamed document")
		return nil
	}
	s.publish(ctx, uri)
	return nil
}
