package server

import (
	"context"

	"github.com/corymhall/jxalsp/file"
	"github.com/corymhall/jxalsp/lsp"
)

func (s *server) DidSave(ctx context.Context, params *lsp.DidSaveTextDocumentParams) error {
	c := file.Modification{
		URI:     params.TextDocument.URI,
		Action:  file.Save,
		Version: -1,
	}
	if params.Text != nil {
		c.Text = []byte(*params.Text)
	}
	return s.didModifyFiles(ctx, c, FromDidSave)
}
