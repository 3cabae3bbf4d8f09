package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderStreamRoundTrip(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	out := NewHeaderStream(nil, &buf)

	call, err := NewCall(NewIntID(7), "textDocument/didOpen", map[string]string{"uri": "file:///a.js"})
	require.NoError(t, err)
	_, err = out.Write(ctx, call)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Content-Length: ")

	in := NewHeaderStream(&buf, io.Discard)
	msg, _, err := in.Read(ctx)
	require.NoError(t, err)
	got, ok := msg.(*Call)
	require.True(t, ok)
	assert.Equal(t, "textDocument/didOpen", got.Method())
	assert.Equal(t, NewIntID(7), got.ID())
	assert.JSONEq(t, `{"uri":"file:///a.js"}`, string(got.Params()))
}

func TestHeaderStreamRejectsMissingLength(t *testing.T) {
	in := NewHeaderStream(bytes.NewBufferString("X-Other: 1\r\n\r\n{}"), io.Discard)
	_, _, err := in.Read(context.Background())
	require.ErrorContains(t, err, "missing Content-Length header")
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","method":"initialized","params":{}}`))
	require.NoError(t, err)
	_, ok := msg.(*Notification)
	assert.True(t, ok)

	msg, err = DecodeMessage([]byte(`{"jsonrpc":"2.0","id":"abc","error":{"code":-32601,"message":"nope"}}`))
	require.NoError(t, err)
	resp, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, NewStringID("abc"), resp.ID())
	assert.ErrorIs(t, resp.Err(), ErrMethodNotFound)

	_, err = DecodeMessage([]byte(`{"jsonrpc":"2.0","result":1}`))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = DecodeMessage([]byte(`{"jsonrpc":"1.0","method":"x"}`))
	assert.Error(t, err)
}

func TestResponseCarriesErrorCode(t *testing.T) {
	resp, err := NewResponse(NewIntID(1), nil, errors.Join(errors.New("context"), ErrInvalidParams))
	require.NoError(t, err)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var wire struct {
		Error *Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &wire))
	require.NotNil(t, wire.Error)
	assert.Equal(t, ErrInvalidParams.Code, wire.Error.Code)
}

func TestConnCallAndReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server := NewConn(NewHeaderStream(serverRead, serverWrite))
	client := NewConn(NewHeaderStream(clientRead, clientWrite))

	go func() {
		_ = server.Run(ctx, func(ctx context.Context, reply Replier, req Request) error {
			if req.Method() == "echo" {
				var v string
				if err := json.Unmarshal(req.Params(), &v); err != nil {
					return reply(ctx, nil, ErrInvalidParams)
				}
				return reply(ctx, v+"!", nil)
			}
			return MethodNotFound(ctx, reply, req)
		})
	}()
	go func() { _ = client.Run(ctx, MethodNotFound) }()

	var result string
	_, err := client.Call(ctx, "echo", "hi", &result)
	require.NoError(t, err)
	assert.Equal(t, "hi!", result)

	_, err = client.Call(ctx, "missing", nil, nil)
	require.ErrorIs(t, err, ErrMethodNotFound)
	assert.Contains(t, err.Error(), `"missing"`)

	require.NoError(t, clientWrite.Close())
	<-server.Done()
}

func TestConnCancelRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()
	server := NewConn(NewHeaderStream(serverRead, serverWrite))
	client := NewConn(NewHeaderStream(clientRead, clientWrite))

	started := make(chan struct{})
	cancelled := make(chan struct{})
	go func() {
		_ = server.Run(ctx, func(ctx context.Context, reply Replier, req Request) error {
			switch req.Method() {
			case "slow":
				close(started)
				<-ctx.Done()
				close(cancelled)
				return reply(ctx, nil, ErrRequestCancelled)
			case "echo":
				return reply(ctx, "pong", nil)
			}
			return MethodNotFound(ctx, reply, req)
		})
	}()
	go func() { _ = client.Run(ctx, MethodNotFound) }()

	callCtx, callCancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		_, err := client.Call(callCtx, "slow", nil, nil)
		errc <- err
	}()

	<-started
	callCancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	require.NoError(t, client.Notify(ctx, CancelMethod, map[string]int{"id": 1}))

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not cancelled")
	}

	var result string
	_, err := client.Call(ctx, "echo", nil, &result)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestHeaderStreamHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"initialized","params":{}}`
	in := NewHeaderStream(bytes.NewBufferString(
		"content-length: "+strconv.Itoa(len(body))+"\r\n"+
			"Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n"+body), io.Discard)
	msg, n, err := in.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "initialized", msg.(*Notification).Method())
	assert.Greater(t, n, int64(len(body)))

	in = NewHeaderStream(bytes.NewBufferString("Content-Length: 2\r\nContent-Type: text/plain; charset=latin1\r\n\r\n{}"), io.Discard)
	_, _, err = in.Read(context.Background())
	assert.ErrorContains(t, err, "unsupported charset")

	in = NewHeaderStream(bytes.NewBufferString(""), io.Discard)
	_, _, err = in.Read(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
