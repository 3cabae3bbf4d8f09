package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/xcontext"
	"golang.org/x/exp/rand"
)

// Tracker reports workspace-wide lint runs to the client. Clients without
// window.workDoneProgress get a window/logMessage at each end instead.
type Tracker struct {
	client lsp.Client

	mu      sync.Mutex
	enabled bool
	active  map[string]*WorkDone
}

func NewTracker(client lsp.Client) *Tracker {
	return &Tracker{client: client, active: map[string]*WorkDone{}}
}

func (t *Tracker) SetSupportsWorkDoneProgress(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// WorkDone is one reported run. A zero token means the run is reported
// through logMessage, or that creating the token failed.
type WorkDone struct {
	tracker *Tracker
	token   string
	logged  bool
	once    sync.Once
	cancel  context.CancelFunc
}

// Start announces a run titled title. cancel, if non-nil, is invoked when the
// user cancels the run from the client.
func (t *Tracker) Start(ctx context.Context, title, message string, cancel context.CancelFunc) *WorkDone {
	ctx = xcontext.Detach(ctx)
	wd := &WorkDone{tracker: t, cancel: cancel}

	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()
	if !enabled {
		wd.logged = true
		t.log(ctx, title+": "+message)
		return wd
	}

	token := strconv.FormatUint(rand.Uint64(), 36)
	err := t.client.WorkDoneProgressCreate(ctx, &lsp.WorkDoneProgressCreateParams{Token: token})
	if err != nil {
		debug.LogError(ctx, "create progress token", err)
		return wd
	}
	wd.token = token
	t.mu.Lock()
	t.active[token] = wd
	t.mu.Unlock()
	debug.Trace.Log(ctx, "progress begin", slog.String("token", token), slog.String("title", title))

	err = t.client.ProgressBegin(ctx, &lsp.WorkDoneProgressBeginParams{
		Token: token,
		Value: &lsp.WorkDoneProgressBeginValue{
			Kind:        lsp.Begin,
			Title:       title,
			Message:     message,
			Cancellable: cancel != nil,
		},
	})
	if err != nil {
		debug.LogError(ctx, "begin progress", err)
	}
	return wd
}

func (t *Tracker) log(ctx context.Context, message string) {
	if err := t.client.LogMessage(ctx, &lsp.LogMessageParams{Type: lsp.MessageLog, Message: message}); err != nil {
		debug.LogError(ctx, "log progress", err)
	}
}

// End closes the run with a final message. Later calls do nothing.
func (wd *WorkDone) End(ctx context.Context, message string) {
	if wd == nil {
		return
	}
	wd.once.Do(func() {
		ctx = xcontext.Detach(ctx)
		t := wd.tracker
		switch {
		case wd.logged:
			t.log(ctx, message)
		case wd.token != "":
			t.mu.Lock()
			delete(t.active, wd.token)
			t.mu.Unlock()
			err := t.client.ProgressEnd(ctx, &lsp.WorkDoneProgressEndParams{
				Token: wd.token,
				Value: &lsp.WorkDoneProgressEndValue{Kind: lsp.End, Message: message},
			})
			if err != nil {
				debug.LogError(ctx, "end progress", err)
			}
		}
	})
}

// Cancel handles window/workDoneProgress/cancel for token.
func (t *Tracker) Cancel(token lsp.ProgressToken) error {
	key := fmt.Sprint(token)
	t.mu.Lock()
	wd, ok := t.active[key]
	t.mu.Unlock()
	switch {
	case !ok:
		return fmt.Errorf("no progress with token %q", key)
	case wd.cancel == nil:
		return fmt.Errorf("progress %q cannot be cancelled", key)
	}
	wd.cancel()
	return nil
}
