package lsp

import (
	"context"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/rpc"
	"github.com/corymhall/jxalsp/xcontext"
)

// Client is the part of the editor the server talks back to.
type Client interface {
	PublishDiagnostics(context.Context, *PublishDiagnosticsParams) error
	// WorkDoneProgressCreate waits for the client to accept the token.
	WorkDoneProgressCreate(context.Context, *WorkDoneProgressCreateParams) error
	ProgressBegin(context.Context, *WorkDoneProgressBeginParams) error
	ProgressEnd(context.Context, *WorkDoneProgressEndParams) error
	ShowMessage(context.Context, *ShowMessageParams) error
	LogMessage(context.Context, *LogMessageParams) error
	Configuration(context.Context, *ParamConfiguration) ([]LSPAny, error)
}

// ClientDispatcher returns a Client sending over conn.
func ClientDispatcher(conn rpc.Conn) Client {
	return &clientDispatcher{conn: conn}
}

type clientDispatcher struct {
	conn rpc.Conn
}

// call sends a request and, when ctx is cancelled before the answer
// arrives, tells the client to stop working on it.
func (c *clientDispatcher) call(ctx context.Context, method string, params, result any) error {
	debug.Trace.Log(ctx, "calling client", "method", method)
	id, err := c.conn.Call(ctx, method, params, result)
	if ctx.Err() != nil {
		debug.Debug.Log(ctx, "client request cancelled", "method", method, "id", id.String())
		_ = c.conn.Notify(xcontext.Detach(ctx), rpc.CancelMethod, &CancelParams{ID: id})
	}
	return err
}

func (c *clientDispatcher) PublishDiagnostics(ctx context.Context, params *PublishDiagnosticsParams) error {
	return c.conn.Notify(ctx, MethodPublishDiagnostics, params)
}

func (c *clientDispatcher) WorkDoneProgressCreate(ctx context.Context, params *WorkDoneProgressCreateParams) error {
	return c.call(ctx, MethodWorkDoneProgressCreate, params, nil)
}

func (c *clientDispatcher) ProgressBegin(ctx context.Context, params *WorkDoneProgressBeginParams) error {
	return c.conn.Notify(ctx, MethodProgress, params)
}

func (c *clientDispatcher) ProgressEnd(ctx context.Context, params *WorkDoneProgressEndParams) error {
	return c.conn.Notify(ctx, MethodProgress, params)
}

func (c *clientDispatcher) ShowMessage(ctx context.Context, params *ShowMessageParams) error {
	return c.conn.Notify(ctx, MethodShowMessage, params)
}

func (c *clientDispatcher) LogMessage(ctx context.Context, params *LogMessageParams) error {
	return c.conn.Notify(ctx, MethodLogMessage, params)
}

func (c *clientDispatcher) Configuration(ctx context.Context, params *ParamConfiguration) ([]LSPAny, error) {
	var result []LSPAny
	if err := c.call(ctx, MethodConfiguration, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
