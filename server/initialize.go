package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/rpc"
	"github.com/corymhall/jxalsp/xcontext"
)

// renameFilters selects the files whose renames carry issues along.
var renameFilters = &lsp.FileOperationRegistrationOptions{
	Filters: []lsp.FileOperationFilter{
		{Scheme: "file", Pattern: lsp.FileOperationPattern{Glob: "**/*.{js,jxa}"}},
	},
}

func (s *server) Initialize(ctx context.Context, params *lsp.InitializeRequestParams) (*lsp.InitializeResult, error) {
	s.stateMu.Lock()
	if s.state >= serverInitializing {
		defer s.stateMu.Unlock()
		return nil, fmt.Errorf("%w: initialize called while server in %v state", rpc.ErrInvalidRequest, s.state)
	}
	s.progress.SetSupportsWorkDoneProgress(params.Capabilities.Window.WorkDoneProgress)
	s.pullConfiguration = params.Capabilities.Workspace.Configuration
	s.state = serverInitializing
	s.stateMu.Unlock()

	root := rootPath(params)
	s.setView(NewView(root, s.config.Defaults))
	debug.Info.Log(ctx, "initializing", slog.String("root", root))

	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncFull,
				Save:      &lsp.SaveOptions{IncludeText: false},
			},
			ExecuteCommandProvider: &lsp.ExecuteCommandOptions{
				Commands: []string{CommandSendToScriptEditor, CommandSendSelectionToScriptEditor, CommandSource},
			},
			Workspace: &lsp.WorkspaceServerCapabilities{
				FileOperations: &lsp.FileOperationOptions{
					WillRename: renameFilters,
					DidRename:  renameFilters,
				},
			},
		},
		ServerInfo: lsp.ServerInfo{
			Name:    "jxalsp",
			Version: s.version,
		},
	}, nil
}

// rootPath picks the workspace folder from rootUri, then the first
// workspace folder, then the deprecated rootPath.
func rootPath(params *lsp.InitializeRequestParams) string {
	if p := params.RootURI.Path(); p != "" {
		return p
	}
	for _, f := range params.WorkspaceFolders {
		if p := f.URI.Path(); p != "" {
			return p
		}
	}
	return params.RootPath
}

func (s *server) Initialized(ctx context.Context, params *lsp.InitializedParams) error {
	s.stateMu.Lock()
	if s.state >= serverInitialized {
		defer s.stateMu.Unlock()
		return fmt.Errorf("%w: initialized called while server in %v state", rpc.ErrInvalidRequest, s.state)
	}
	s.state = serverInitialized
	s.stateMu.Unlock()

	ctx, done := debug.Start(ctx, "initialized")
	defer done()

	s.activate(ctx)
	view := s.currentView()
	if _, _, err := view.LoadWorkspaceFile(ctx); err != nil {
		s.showError(ctx, err)
	}
	s.reconfigure(ctx)

	if view.Root() != "" {
		w, err := NewWatcher(view.Root(), func(name string) {
			s.workspaceFileChanged(xcontext.Detach(ctx), name)
		})
		if err != nil {
			debug.LogError(ctx, "error creating watcher", err)
		} else {
			s.stateMu.Lock()
			s.watcher = w
			s.stateMu.Unlock()
			go w.Start(xcontext.Detach(ctx))
		}
	}

	if s.pullConfiguration {
		// Requests queued behind initialized should not wait for the
		// round trip.
		go s.fetchConfiguration(xcontext.Detach(ctx))
	}
	return nil
}

// showError shows err to the user as an error message.
func (s *server) showError(ctx context.Context, err error) {
	debug.LogError(ctx, "showing error", err)
	if serr := s.client.ShowMessage(ctx, &lsp.ShowMessageParams{
		Type:    lsp.MessageError,
		Message: err.Error(),
	}); serr != nil {
		debug.LogError(ctx, "error showing message", serr)
	}
}
