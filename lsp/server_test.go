package lsp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/corymhall/jxalsp/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	opened  []DocumentURI
	renames []FileRename
	command string
}

func (s *recordingServer) Exit(context.Context) error     { return nil }
func (s *recordingServer) Shutdown(context.Context) error { return nil }
func (s *recordingServer) Initialize(context.Context, *InitializeRequestParams) (*InitializeResult, error) {
	return &InitializeResult{ServerInfo: ServerInfo{Name: "test"}}, nil
}
func (s *recordingServer) Initialized(context.Context, *InitializedParams) error { return nil }
func (s *recordingServer) DidOpen(_ context.Context, p *DidOpenTextDocumentParams) error {
	s.opened = append(s.opened, p.TextDocument.URI)
	return nil
}
func (s *recordingServer) DidChange(context.Context, *DidChangeTextDocumentParams) error { return nil }
func (s *recordingServer) DidSave(context.Context, *DidSaveTextDocumentParams) error     { return nil }
func (s *recordingServer) DidClose(context.Context, *DidCloseTextDocumentParams) error   { return nil }
func (s *recordingServer) DidChangeConfiguration(context.Context, *DidChangeConfigurationParams) error {
	return nil
}
func (s *recordingServer) WillRenameFiles(_ context.Context, p *RenameFilesParams) (*WorkspaceEdit, error) {
	s.renames = append(s.renames, p.Files...)
	return nil, nil
}
func (s *recordingServer) DidRenameFiles(context.Context, *RenameFilesParams) error { return nil }
func (s *recordingServer) ExecuteCommand(_ context.Context, p *ExecuteCommandParams) (any, error) {
	s.command = p.Command
	return "ok", nil
}
func (s *recordingServer) WorkDoneProgressCancel(context.Context, *WorkDoneProgressCancelParams) error {
	return nil
}
func (s *recordingServer) Logger() *log.Logger { return log.New(io.Discard, "", 0) }

type replyRecord struct {
	result any
	err    error
	called bool
}

func (r *replyRecord) replier() rpc.Replier {
	return func(_ context.Context, result any, err error) error {
		r.result, r.err, r.called = result, err, true
		return nil
	}
}

func dispatch(t *testing.T, srv Server, method string, params any) *replyRecord {
	t.Helper()
	req, err := rpc.NewCall(rpc.NewIntID(1), method, params)
	require.NoError(t, err)
	rec := &replyRecord{}
	require.NoError(t, ServerHandler(srv, rpc.MethodNotFound)(context.Background(), rec.replier(), req))
	require.True(t, rec.called)
	return rec
}

func TestServerHandlerDispatch(t *testing.T) {
	srv := &recordingServer{}

	rec := dispatch(t, srv, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: "file:///a.js", Text: "x"},
	})
	assert.NoError(t, rec.err)
	assert.Equal(t, []DocumentURI{"file:///a.js"}, srv.opened)

	rec = dispatch(t, srv, "workspace/willRenameFiles", RenameFilesParams{
		Files: []FileRename{{OldURI: "file:///a.js", NewURI: "file:///b.js"}},
	})
	assert.NoError(t, rec.err)
	assert.Len(t, srv.renames, 1)

	rec = dispatch(t, srv, "workspace/executeCommand", ExecuteCommandParams{Command: "jxa.source"})
	assert.Equal(t, "ok", rec.result)
	assert.Equal(t, "jxa.source", srv.command)
}

func TestServerHandlerUnknownMethod(t *testing.T) {
	rec := dispatch(t, &recordingServer{}, "textDocument/hover", nil)
	assert.ErrorIs(t, rec.err, rpc.ErrMethodNotFound)
}

func TestServerHandlerParseError(t *testing.T) {
	req, err := rpc.NewCall(rpc.NewIntID(1), "textDocument/didOpen", json.RawMessage(`{"textDocument": 5}`))
	require.NoError(t, err)
	rec := &replyRecord{}
	require.NoError(t, ServerHandler(&recordingServer{}, rpc.MethodNotFound)(context.Background(), rec.replier(), req))
	assert.ErrorIs(t, rec.err, rpc.ErrParse)
}
