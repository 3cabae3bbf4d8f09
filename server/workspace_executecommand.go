package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/rpc"
	"github.com/corymhall/jxalsp/scripteditor"
)

const (
	// CommandSendToScriptEditor opens a whole document in Script Editor.
	// Arguments: [uri].
	CommandSendToScriptEditor = "jxa.sendToScriptEditor"
	// CommandSendSelectionToScriptEditor opens part of a document in Script
	// Editor. Arguments: [uri, range].
	CommandSendSelectionToScriptEditor = "jxa.sendSelectionToScriptEditor"
	// CommandSource returns the text the server holds for a document.
	// Arguments: [uri].
	CommandSource = "jxa.source"
)

func (s *server) ExecuteCommand(ctx context.Context, params *lsp.ExecuteCommandParams) (any, error) {
	ctx, done := debug.Start(ctx, "workspace.executeCommand", slog.String("command", params.Command))
	defer done()

	switch params.Command {
	case CommandSource:
		text, err := s.commandText(ctx, params.Arguments, false)
		if err != nil {
			return nil, err
		}
		return text, nil

	case CommandSendToScriptEditor:
		text, err := s.commandText(ctx, params.Arguments, false)
		if err != nil {
			return nil, err
		}
		return nil, s.sendToScriptEditor(ctx, text)

	case CommandSendSelectionToScriptEditor:
		text, err := s.commandText(ctx, params.Arguments, true)
		if err != nil {
			return nil, err
		}
		return nil, s.sendToScriptEditor(ctx, text)
	}
	return nil, fmt.Errorf("%w: unknown command %q", rpc.ErrInvalidParams, params.Command)
}

// commandText resolves the document named by the first argument and, when
// selection is set, cuts it down to the range in the second.
func (s *server) commandText(ctx context.Context, args []json.RawMessage, selection bool) (string, error) {
	want := 1
	if selection {
		want = 2
	}
	if len(args) < want {
		return "", fmt.Errorf("%w: expected %d arguments, got %d", rpc.ErrInvalidParams, want, len(args))
	}
	var uri lsp.DocumentURI
	if err := json.Unmarshal(args[0], &uri); err != nil {
		return "", fmt.Errorf("%w: uri: %s", rpc.ErrInvalidParams, err)
	}
	fh, err := s.overlays.ReadFile(ctx, uri)
	if err != nil {
		return "", err
	}
	text := string(fh.Content())
	if !selection {
		return text, nil
	}
	var rng lsp.Range
	if err := json.Unmarshal(args[1], &rng); err != nil {
		return "", fmt.Errorf("%w: range: %s", rpc.ErrInvalidParams, err)
	}
	return scripteditor.Selection(text, rng), nil
}

func (s *server) sendToScriptEditor(ctx context.Context, text string) error {
	err := scripteditor.Send(ctx, s.runner, s.config.JXARun(), s.config.OSAScript, text)
	if err != nil {
		s.showError(ctx, err)
	}
	return err
}
