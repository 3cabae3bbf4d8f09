package server

import (
	"context"
	"log/slog"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/lsp"
)

// WillRenameFiles remembers the renames so that closing the old document
// keeps its issues until the new one shows up.
func (s *server) WillRenameFiles(ctx context.Context, params *lsp.RenameFilesParams) (*lsp.WorkspaceEdit, error) {
	s.renameMu.Lock()
	defer s.renameMu.Unlock()
	for _, f := range params.Files {
		if f.OldURI == f.NewURI {
			continue
		}
		s.pendingRenames[f.OldURI] = f.NewURI
		debug.Debug.Log(ctx, "rename pending", slog.String("old", string(f.OldURI)), slog.String("new", string(f.NewURI)))
	}
	return nil, nil
}

func (s *server) DidRenameFiles(ctx context.Context, params *lsp.RenameFilesParams) error {
	ctx, done := debug.Start(ctx, "workspace.didRenameFiles")
	defer done()
	for _, f := range params.Files {
		s.completeRename(ctx, f.OldURI, f.NewURI)
	}
	return nil
}

// completeRenameTo finishes the pending renames whose target is uri.
func (s *server) completeRenameTo(ctx context.Context, uri lsp.DocumentURI) {
	s.renameMu.Lock()
	var sources []lsp.DocumentURI
	for oldURI, newURI := range s.pendingRenames {
		if newURI == uri {
			sources = append(sources, oldURI)
		}
	}
	s.renameMu.Unlock()
	for _, oldURI := range sources {
		s.completeRename(ctx, oldURI, uri)
	}
}

// completeRename moves the issues of oldURI to newURI. The old document
// keeps its issues while it is still open.
func (s *server) completeRename(ctx context.Context, oldURI, newURI lsp.DocumentURI) {
	s.renameMu.Lock()
	delete(s.pendingRenames, oldURI)
	s.renameMu.Unlock()

	if !s.issues.Rename(oldURI, newURI, s.overlays.IsOpen(oldURI)) {
		return
	}
	debug.Debug.Log(ctx, "issues carried over", slog.String("old", string(oldURI)), slog.String("new", string(newURI)))
	s.publish(ctx, oldURI)
	s.publish(ctx, newURI)
}
