package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/corymhall/jxalsp/debug"
)

// CancelMethod is the notification a peer sends to cancel one of its calls.
const CancelMethod = "$/cancelRequest"

// queueSize is the number of requests read ahead of the handler.
const queueSize = 64

// Conn is a JSON-RPC connection. It has no designated client or server end:
// either side can send calls and notifications.
type Conn interface {
	// Call sends a request and waits for the response, which is decoded
	// into result when result is non-nil. The returned ID identifies the call
	// on this connection, for logging or cancellation.
	Call(ctx context.Context, method string, params, result any) (ID, error)

	// Notify sends a request that gets no response.
	Notify(ctx context.Context, method string, params any) error

	// Run reads from the stream until it is closed or fails. Requests are
	// handed to handler one at a time in arrival order; responses and
	// cancellations are processed as soon as they are read, so a handler may
	// make calls of its own. Run returns nil when the peer closed the stream.
	Run(ctx context.Context, handler Handler) error

	// Done is closed when Run returns.
	Done() <-chan struct{}
}

type conn struct {
	seq    atomic.Int64
	stream Stream

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[ID]chan *Response

	// inflight cancels calls received from the peer that have not been
	// answered yet.
	inflightMu sync.Mutex
	inflight   map[ID]context.CancelFunc

	done chan struct{}
}

func NewConn(s Stream) Conn {
	return &conn{
		stream:   s,
		pending:  make(map[ID]chan *Response),
		inflight: make(map[ID]context.CancelFunc),
		done:     make(chan struct{}),
	}
}

func (c *conn) Notify(ctx context.Context, method string, params any) error {
	n, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	_, err = c.write(ctx, n)
	return err
}

func (c *conn) Call(ctx context.Context, method string, params, result any) (ID, error) {
	id := NewIntID(c.seq.Add(1))
	call, err := NewCall(id, method, params)
	if err != nil {
		return id, err
	}
	// Register before sending so the response cannot arrive first. The
	// buffer lets Run deliver a response for a call that already gave up.
	rchan := make(chan *Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = rchan
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if _, err := c.write(ctx, call); err != nil {
		return id, err
	}
	select {
	case resp := <-rchan:
		if resp.err != nil {
			return id, resp.err
		}
		if result == nil || len(resp.result) == 0 {
			return id, nil
		}
		if err := json.Unmarshal(resp.result, result); err != nil {
			return id, fmt.Errorf("unmarshaling %s result: %w", method, err)
		}
		return id, nil
	case <-ctx.Done():
		return id, ctx.Err()
	case <-c.done:
		return id, fmt.Errorf("%s: connection closed", method)
	}
}

func (c *conn) write(ctx context.Context, msg Message) (int64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.stream.Write(ctx, msg)
}

// replier answers req. Replies to notifications are dropped.
func (c *conn) replier(req Request) Replier {
	call, isCall := req.(*Call)
	return func(ctx context.Context, result any, err error) error {
		if !isCall {
			return nil
		}
		defer c.finished(call.id)
		resp, rerr := NewResponse(call.id, result, err)
		if rerr != nil {
			resp, _ = NewResponse(call.id, nil, fmt.Errorf("%w: %s", ErrInternal, rerr))
		}
		// A cancelled call is still answered.
		_, werr := c.write(context.WithoutCancel(ctx), resp)
		return werr
	}
}

// incoming is a request waiting for the handler, with the context it is
// handled under.
type incoming struct {
	ctx context.Context
	req Request
}

func (c *conn) Run(ctx context.Context, handler Handler) error {
	defer close(c.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan incoming, queueSize)
	readErr := make(chan error, 1)
	go func() {
		defer close(queue)
		readErr <- c.read(ctx, queue)
	}()

	for in := range queue {
		if err := handler(in.ctx, c.replier(in.req), in.req); err != nil {
			debug.Warning.Log(in.ctx, "handler failed", "method", in.req.Method(), "error", err)
		}
		if call, ok := in.req.(*Call); ok {
			c.finished(call.id)
		}
	}

	err := <-readErr
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("reading from stream: %w", err)
}

// read decodes messages until the stream fails. Malformed messages are
// logged and skipped.
func (c *conn) read(ctx context.Context, queue chan<- incoming) error {
	for {
		msg, n, err := c.stream.Read(ctx)
		if err != nil {
			var rpcErr *Error
			if errors.As(err, &rpcErr) && n > 0 {
				debug.Warning.Log(ctx, "dropping malformed message", "error", err)
				continue
			}
			return err
		}
		switch msg := msg.(type) {
		case *Response:
			c.pendingMu.Lock()
			rchan, ok := c.pending[msg.id]
			c.pendingMu.Unlock()
			if ok {
				rchan <- msg
			}

		case *Notification:
			if msg.method == CancelMethod {
				c.cancel(ctx, msg.params)
				continue
			}
			debug.Trace.Log(ctx, "received notification", "method", msg.method, "bytes", n)
			queue <- incoming{ctx: ctx, req: msg}

		case *Call:
			debug.Trace.Log(ctx, "received call", "method", msg.method, "id", msg.id.String(), "bytes", n)
			callCtx, cancel := context.WithCancel(ctx)
			c.inflightMu.Lock()
			c.inflight[msg.id] = cancel
			c.inflightMu.Unlock()
			queue <- incoming{ctx: callCtx, req: msg}
		}
	}
}

// cancel handles $/cancelRequest. Calls that were already answered are
// ignored.
func (c *conn) cancel(ctx context.Context, params json.RawMessage) {
	var p struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		debug.Warning.Log(ctx, "invalid cancel request", "error", err)
		return
	}
	c.inflightMu.Lock()
	cancel, ok := c.inflight[p.ID]
	c.inflightMu.Unlock()
	if ok {
		debug.Debug.Log(ctx, "cancelling call", "id", p.ID.String())
		cancel()
	}
}

// finished forgets a call received from the peer and releases its context.
func (c *conn) finished(id ID) {
	c.inflightMu.Lock()
	cancel, ok := c.inflight[id]
	delete(c.inflight, id)
	c.inflightMu.Unlock()
	if ok {
		cancel()
	}
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}
