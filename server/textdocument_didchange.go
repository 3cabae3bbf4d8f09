package server

import (
	"context"
	"fmt"

	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/rpc"
)

func (s *server) DidChange(ctx context.Context, params *lsp.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Only full sync is advertised, so the last change holds the whole text.
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if change.Range != nil {
		return fmt.Errorf("%w: incremental change to %s", rpc.ErrInvalidParams, params.TextDocument.URI)
	}
	return s.didModifyFiles(ctx, file.Modification{
		URI:     params.TextDocument.URI,
		Action:  file.Change,
		Version: params.TextDocument.Version,
		Text:    []byte(change.Text),
	}, FromDidChange)
}
