package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/corymhall/jxalsp/lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logClient struct {
	lsp.Client
	messages chan *lsp.LogMessageParams
}

func (c *logClient) LogMessage(_ context.Context, p *lsp.LogMessageParams) error {
	c.messages <- p
	return nil
}

func receive(t *testing.T, c *logClient) *lsp.LogMessageParams {
	t.Helper()
	select {
	case m := <-c.messages:
		return m
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no log message received")
		return nil
	}
}

func TestHandlerForwardsToClient(t *testing.T) {
	client := &logClient{messages: make(chan *lsp.LogMessageParams, 10)}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	log := slog.New(NewHandler(client, level)).With("uri", "file:///a.js").WithGroup("run")

	log.Debug("skipped")
	log.Warn("lint failed", "provider", "eslint")

	m := receive(t, client)
	assert.Equal(t, lsp.MessageWarning, m.Type)
	assert.Equal(t, "lint failed uri=file:///a.js run.provider=eslint", m.Message)
}

func TestFanout(t *testing.T) {
	client := &logClient{messages: make(chan *lsp.LogMessageParams, 10)}
	level := new(slog.LevelVar)
	level.Set(slog.LevelError)
	var buf bytes.Buffer
	log := slog.New(Fanout(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		NewHandler(client, level),
	))

	log.Info("to file only")
	log.Error("everywhere")

	m := receive(t, client)
	assert.Equal(t, "everywhere", m.Message)
	assert.Equal(t, lsp.MessageError, m.Type)
	assert.Contains(t, buf.String(), "to file only")
	assert.Contains(t, buf.String(), "everywhere")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Less(t, l, slog.LevelDebug)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
