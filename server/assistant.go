package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/provider"
	"github.com/corymhall/jxalsp/telemetry"
	"github.com/corymhall/jxalsp/xcontext"
	"github.com/google/uuid"
)

// Trigger selects the provider entry point of a lint run.
type Trigger int

const (
	OnChange Trigger = iota
	OnSave
)

func (t Trigger) String() string {
	if t == OnSave {
		return "onSave"
	}
	return "onChange"
}

// NotAvailable is reported when no provider can lint a document.
const NotAvailable = "Linting not available."

// Documents reports which documents are open in the editor.
type Documents interface {
	IsOpen(uri lsp.DocumentURI) bool
}

// PublishFunc sends the current issues of uri to the editor.
type PublishFunc func(ctx context.Context, uri lsp.DocumentURI)

// Assistant runs the provider cascade for documents and keeps the issue
// collection up to date with the results.
type Assistant struct {
	cascade   provider.Cascade
	issues    *issue.Collection
	docs      Documents
	publish   PublishFunc
	telemetry *telemetry.Telemetry
	seq       *RunSequence

	// storeMu orders accepting a result with writing it, and with anything
	// else that writes to issues through Hold.
	storeMu sync.Mutex

	mu     sync.Mutex
	ws     provider.Workspace
	active provider.Cascade

	// ctx is cancelled by Close and bounds every scheduled run.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAssistant returns an assistant with no active providers; call
// Reconfigure before linting. docs may be nil, in which case every document
// counts as open.
func NewAssistant(cascade provider.Cascade, issues *issue.Collection, docs Documents, publish PublishFunc, tel *telemetry.Telemetry) *Assistant {
	if publish == nil {
		publish = func(context.Context, lsp.DocumentURI) {}
	}
	if tel == nil {
		tel = telemetry.Noop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Assistant{
		cascade:   cascade,
		issues:    issues,
		docs:      docs,
		publish:   publish,
		telemetry: tel,
		seq:       NewRunSequence(),
		ws:        provider.Workspace{Settings: config.Defaults()},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Reconfigure records ws and recomputes which providers can run in it. It
// returns the names of the active providers in cascade order.
func (a *Assistant) Reconfigure(ctx context.Context, ws provider.Workspace) []string {
	active := a.cascade.Available(&ws)
	a.mu.Lock()
	a.ws = ws
	a.active = active
	a.mu.Unlock()

	names := make([]string, 0, len(active))
	for _, p := range active {
		names = append(names, p.Name())
	}
	debug.Info.Log(ctx, "providers configured", slog.Any("active", names), slog.String("mode", string(ws.Settings.Mode)))
	return names
}

func (a *Assistant) snapshot() (provider.Workspace, provider.Cascade) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ws, a.active
}

// Settings returns the settings the assistant currently lints with.
func (a *Assistant) Settings() config.Settings {
	ws, _ := a.snapshot()
	return ws.Settings
}

// run is one lint run, from the moment its index is taken until its result
// is applied.
type run struct {
	id      string
	index   int
	trigger Trigger
	doc     provider.Document
	ws      provider.Workspace
	// provider is nil when the document is empty or no provider qualifies.
	provider provider.Provider
}

func (r *run) providerName() string {
	if r.provider == nil {
		return "none"
	}
	return r.provider.Name()
}

// begin takes a run index for doc. It must be called in the order events
// arrive. ok is false when linting is off, in which case every issue has
// been cleared.
func (a *Assistant) begin(ctx context.Context, trigger Trigger, doc provider.Document) (*run, bool) {
	ws, active := a.snapshot()
	if ws.Settings.Mode == config.ModeOff {
		a.Clear(ctx)
		return nil, false
	}
	r := &run{
		id:      uuid.NewString(),
		index:   a.seq.Begin(doc.URI),
		trigger: trigger,
		doc:     doc,
		ws:      ws,
	}
	if doc.Text != "" {
		r.provider, _ = active.Select(&ws, doc)
	}
	return r, true
}

// finish runs the provider chosen by begin and applies its result.
func (a *Assistant) finish(ctx context.Context, r *run) (issue.IssueSet, error) {
	name := r.providerName()
	ctx, _ = debug.With(ctx,
		slog.String("uri", string(r.doc.URI)),
		slog.Int("run", r.index),
		slog.String("runID", r.id),
		slog.String("provider", name),
	)
	ctx, done := debug.Start(ctx, "lint", slog.String("trigger", r.trigger.String()))
	defer done()
	ctx, span := a.telemetry.StartRun(ctx, name, r.trigger.String(), string(r.doc.URI))
	started := time.Now()

	issues, err := a.lint(ctx, r)
	outcome := a.apply(ctx, r, issues, err)
	a.telemetry.EndRun(ctx, span, name, r.trigger.String(), started, len(issues), outcome, err)
	return issues, err
}

func (a *Assistant) lint(ctx context.Context, r *run) (issue.IssueSet, error) {
	switch {
	case r.doc.Text == "":
		return issue.IssueSet{}, nil
	case r.provider == nil:
		if r.ws.Settings.HideInfo {
			return issue.IssueSet{}, nil
		}
		return issue.IssueSet{issue.NewInfo(provider.Source, NotAvailable)}, nil
	case r.trigger == OnSave:
		return r.provider.OnSave(ctx, &r.ws, r.doc)
	default:
		return r.provider.OnChange(ctx, &r.ws, r.doc)
	}
}

// apply stores the result of r unless a later run already delivered one.
func (a *Assistant) apply(ctx context.Context, r *run, issues issue.IssueSet, err error) telemetry.Outcome {
	uri := r.doc.URI
	if err != nil && ctx.Err() != nil {
		debug.Debug.Log(ctx, "lint cancelled")
		return telemetry.OutcomeCancelled
	}
	outcome, changed := a.store(ctx, r, issues, err)
	if changed {
		a.publish(ctx, uri)
	}
	return outcome
}

// store holds storeMu from Accept through the write, so an accepted result
// cannot land after a newer one or after its document was closed.
func (a *Assistant) store(ctx context.Context, r *run, issues issue.IssueSet, err error) (telemetry.Outcome, bool) {
	uri := r.doc.URI
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if !a.seq.Accept(uri, r.index) {
		debug.Debug.Log(ctx, "discarding stale lint result")
		return telemetry.OutcomeStale, false
	}
	if a.Settings().Mode == config.ModeOff {
		return telemetry.OutcomeOff, false
	}
	if err != nil {
		debug.LogError(ctx, "lint failed", err)
		return telemetry.OutcomeError, a.issues.Remove(uri)
	}
	if a.docs != nil && !a.docs.IsOpen(uri) {
		debug.Debug.Log(ctx, "document closed before lint finished")
		return telemetry.OutcomeClosed, a.issues.Remove(uri)
	}
	if len(issues) == 0 {
		return telemetry.OutcomeOK, a.issues.Remove(uri)
	}
	return telemetry.OutcomeOK, a.issues.SetIfChanged(uri, issues)
}

// Hold runs fn while no lint result is being stored. Closing a document
// goes through Hold so a run that saw it open cannot write after it.
func (a *Assistant) Hold(fn func()) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	fn()
}

// Lint lints doc and waits for the result. The returned issues are those of
// this run, even when a newer run's result was kept instead.
func (a *Assistant) Lint(ctx context.Context, trigger Trigger, doc provider.Document) (issue.IssueSet, error) {
	r, ok := a.begin(ctx, trigger, doc)
	if !ok {
		return nil, nil
	}
	return a.finish(ctx, r)
}

// Schedule lints doc in the background. The run index is taken before
// Schedule returns, so results are ordered by call order.
func (a *Assistant) Schedule(ctx context.Context, trigger Trigger, doc provider.Document) {
	r, ok := a.begin(ctx, trigger, doc)
	if !ok {
		return
	}
	a.background(ctx, func(ctx context.Context) {
		_, _ = a.finish(ctx, r)
	})
}

// background runs fn on its own goroutine with a context that outlives the
// request in ctx and is cancelled by Close.
func (a *Assistant) background(ctx context.Context, fn func(context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithCancel(xcontext.Detach(ctx))
		defer cancel()
		stop := context.AfterFunc(a.ctx, cancel)
		defer stop()
		fn(ctx)
	}()
}

// Clear removes every issue and publishes the now empty sets.
func (a *Assistant) Clear(ctx context.Context) {
	var cleared []lsp.DocumentURI
	a.Hold(func() { cleared = a.issues.Clear() })
	for _, uri := range cleared {
		a.publish(ctx, uri)
	}
}

// Wait blocks until every scheduled run has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

// Close cancels scheduled runs and waits for them.
func (a *Assistant) Close() {
	a.cancel()
	a.wg.Wait()
}
