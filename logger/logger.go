// Package logger forwards slog records to the editor as window/logMessage
// notifications.
package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/xcontext"
)

// ProgramLevel is the minimum level forwarded to the client.
var ProgramLevel = new(slog.LevelVar)

// queueSize is big enough for a large transient burst. Records beyond it are
// dropped rather than blocking the caller.
const queueSize = 100

type sender struct {
	once   sync.Once
	client lsp.Client
	queue  chan func()
}

func (s *sender) send(ctx context.Context, params *lsp.LogMessageParams) {
	s.once.Do(func() {
		go func() {
			for fn := range s.queue {
				fn()
			}
		}()
	})
	ctx = xcontext.Detach(ctx)
	select {
	case s.queue <- func() { _ = s.client.LogMessage(ctx, params) }:
	default:
	}
}

// Handler is a slog.Handler writing to the client's log.
type Handler struct {
	sender *sender
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

// NewHandler returns a handler forwarding records at or above level to
// client. A nil level uses ProgramLevel.
func NewHandler(client lsp.Client, level slog.Leveler) *Handler {
	if level == nil {
		level = ProgramLevel
	}
	return &Handler{
		sender: &sender{client: client, queue: make(chan func(), queueSize)},
		level:  level,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	r.Attrs(func(a slog.Attr) bool {
		if !a.Equal(slog.Attr{}) {
			fmt.Fprintf(&b, " %s=%v", h.qualify(a.Key), a.Value.Resolve())
		}
		return true
	})
	h.sender.send(ctx, &lsp.LogMessageParams{
		Type:    convertLevel(r.Level),
		Message: b.String(),
	})
	return nil
}

func (h *Handler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h2.group != "" {
		name = h2.group + "." + name
	}
	h2.group = name
	return &h2
}

func convertLevel(level slog.Level) lsp.MessageType {
	switch {
	case level >= slog.LevelError:
		return lsp.MessageError
	case level >= slog.LevelWarn:
		return lsp.MessageWarning
	case level >= slog.LevelInfo:
		return lsp.MessageInfo
	case level >= slog.LevelDebug:
		return lsp.MessageLog
	default:
		return lsp.MessageDebug
	}
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return debug.LevelTrace, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// Fanout sends every record to all handlers that accept it.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
