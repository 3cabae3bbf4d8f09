package lsp

import (
	"context"
	"fmt"
	"log"

	"github.com/corymhall/jxalsp/rpc"
)

type Server interface {
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#exit
	Exit(context.Context) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#initialize
	Initialize(context.Context, *InitializeRequestParams) (*InitializeResult, error)
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#initialized
	Initialized(context.Context, *InitializedParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#shutdown
	Shutdown(context.Context) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#textDocument_didOpen
	DidOpen(context.Context, *DidOpenTextDocumentParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#textDocument_didChange
	DidChange(context.Context, *DidChangeTextDocumentParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#textDocument_didSave
	DidSave(context.Context, *DidSaveTextDocumentParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#textDocument_didClose
	DidClose(context.Context, *DidCloseTextDocumentParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#workspace_didChangeConfiguration
	DidChangeConfiguration(context.Context, *DidChangeConfigurationParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#workspace_willRenameFiles
	WillRenameFiles(context.Context, *RenameFilesParams) (*WorkspaceEdit, error)
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#workspace_didRenameFiles
	DidRenameFiles(context.Context, *RenameFilesParams) error
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#workspace_executeCommand
	ExecuteCommand(context.Context, *ExecuteCommandParams) (any, error)
	// See https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification#window_workDoneProgress_cancel
	WorkDoneProgressCancel(context.Context, *WorkDoneProgressCancelParams) error
	Logger() *log.Logger
}

func serverDispatch(ctx context.Context, server Server, reply rpc.Replier, r rpc.Request) (bool, error) {
	switch r.Method() {
	case MethodExit:
		err := server.Exit(ctx)
		return true, reply(ctx, nil, err)
	case MethodShutdown:
		err := server.Shutdown(ctx)
		return true, reply(ctx, nil, err)
	case MethodInitialize:
		server.Logger().Printf("Received initialize request: %s", string(r.Params()))
		return call(ctx, server, reply, r, server.Initialize)
	case MethodInitialized:
		return notify(ctx, server, reply, r, server.Initialized)
	case MethodDidOpen:
		return notify(ctx, server, reply, r, server.DidOpen)
	case MethodDidChange:
		return notify(ctx, server, reply, r, server.DidChange)
	case MethodDidSave:
		return notify(ctx, server, reply, r, server.DidSave)
	case MethodDidClose:
		return notify(ctx, server, reply, r, server.DidClose)
	case MethodDidChangeConfiguration:
		return notify(ctx, server, reply, r, server.DidChangeConfiguration)
	case MethodWillRenameFiles:
		return call(ctx, server, reply, r, server.WillRenameFiles)
	case MethodDidRenameFiles:
		return notify(ctx, server, reply, r, server.DidRenameFiles)
	case MethodExecuteCommand:
		return call(ctx, server, reply, r, server.ExecuteCommand)
	case MethodWorkDoneProgressCancel:
		return notify(ctx, server, reply, r, server.WorkDoneProgressCancel)
	default:
		return false, nil
	}
}

// notify decodes the params of r and hands them to a handler that has no
// result.
func notify[P any](ctx context.Context, server Server, reply rpc.Replier, r rpc.Request, fn func(context.Context, *P) error) (bool, error) {
	var params P
	if err := UnmarshalJSON(r.Params(), &params); err != nil {
		return true, sendParseError(ctx, reply, err)
	}
	err := fn(ctx, &params)
	if err != nil {
		server.Logger().Printf("Error %s: %s", r.Method(), err)
	}
	return true, reply(ctx, nil, err)
}

// call decodes the params of r and replies with the handler's result.
func call[P, R any](ctx context.Context, server Server, reply rpc.Replier, r rpc.Request, fn func(context.Context, *P) (R, error)) (bool, error) {
	var params P
	if err := UnmarshalJSON(r.Params(), &params); err != nil {
		return true, sendParseError(ctx, reply, err)
	}
	resp, err := fn(ctx, &params)
	if err != nil {
		server.Logger().Printf("Error %s: %s", r.Method(), err)
		return true, reply(ctx, nil, err)
	}
	return true, reply(ctx, resp, nil)
}

func sendParseError(ctx context.Context, reply rpc.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%w: %s", rpc.ErrParse, err))
}
