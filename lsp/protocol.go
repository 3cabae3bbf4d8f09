package lsp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/corymhall/jxalsp/rpc"
	"github.com/corymhall/jxalsp/xcontext"
)

type ProgressToken any

// CancelParams are the params of $/cancelRequest.
type CancelParams struct {
	ID rpc.ID `json:"id"`
}

// UnmarshalJSON decodes params into v. Absent and null params leave v
// untouched.
func UnmarshalJSON(params json.RawMessage, v any) error {
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		return nil
	}
	return json.Unmarshal(params, v)
}

// ServerHandler dispatches requests to server, passing the ones it does not
// know to handler.
func ServerHandler(server Server, handler rpc.Handler) rpc.Handler {
	return func(ctx context.Context, reply rpc.Replier, req rpc.Request) error {
		if ctx.Err() != nil {
			return reply(xcontext.Detach(ctx), nil, rpc.ErrRequestCancelled)
		}
		handled, err := serverDispatch(ctx, server, reply, req)
		if handled || err != nil {
			return err
		}
		return handler(ctx, reply, req)
	}
}
