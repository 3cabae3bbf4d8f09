package server

import (
	"context"

	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/lsp"
)

func (s *server) DidClose(ctx context.Context, params *lsp.DidCloseTextDocumentParams) error {
	return s.didModifyFiles(ctx, file.Modification{
		URI:     params.TextDocument.URI,
		Action:  file.Close,
		Version: -1,
	}, FromDidClose)
}
