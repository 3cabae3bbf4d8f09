package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider lints with a function instead of a subprocess.
type fakeProvider struct {
	name     string
	noSetup  bool
	canLint  func(doc provider.Document) bool
	lint     func(ctx context.Context, trigger Trigger, doc provider.Document) (issue.IssueSet, error)
	mu       sync.Mutex
	triggers []Trigger
	disposed bool
}

func (p *fakeProvider) Name() string                      { return p.name }
func (p *fakeProvider) CanSetup(*provider.Workspace) bool { return !p.noSetup }
func (p *fakeProvider) CanLint(_ *provider.Workspace, doc provider.Document) bool {
	if p.canLint == nil {
		return true
	}
	return p.canLint(doc)
}

func (p *fakeProvider) run(ctx context.Context, t Trigger, doc provider.Document) (issue.IssueSet, error) {
	p.mu.Lock()
	p.triggers = append(p.triggers, t)
	p.mu.Unlock()
	if p.lint == nil {
		return issue.IssueSet{}, nil
	}
	return p.lint(ctx, t, doc)
}

func (p *fakeProvider) OnChange(ctx context.Context, _ *provider.Workspace, doc provider.Document) (issue.IssueSet, error) {
	return p.run(ctx, OnChange, doc)
}

func (p *fakeProvider) OnSave(ctx context.Context, _ *provider.Workspace, doc provider.Document) (issue.IssueSet, error) {
	return p.run(ctx, OnSave, doc)
}

func (p *fakeProvider) Dispose() error {
	p.disposed = true
	return nil
}

func (p *fakeProvider) seen() []Trigger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Trigger{}, p.triggers...)
}

// echo reports one error carrying the document text.
func echo(_ context.Context, _ Trigger, doc provider.Document) (issue.IssueSet, error) {
	return issue.IssueSet{{
		Source:    "fake",
		Message:   doc.Text,
		Line:      1,
		Column:    1,
		EndLine:   1,
		EndColumn: 2,
		Severity:  issue.Error,
	}}, nil
}

type openDocs map[lsp.DocumentURI]bool

func (d openDocs) IsOpen(uri lsp.DocumentURI) bool { return d[uri] }

type publishRecorder struct {
	mu   sync.Mutex
	uris []lsp.DocumentURI
}

func (r *publishRecorder) publish(_ context.Context, uri lsp.DocumentURI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uris = append(r.uris, uri)
}

func (r *publishRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uris)
}

const docURI = lsp.DocumentURI("file:///work/script.js")

func newTestAssistant(t *testing.T, settings config.Settings, cascade ...provider.Provider) (*Assistant, *issue.Collection, *publishRecorder) {
	t.Helper()
	issues := issue.NewCollection()
	rec := &publishRecorder{}
	a := NewAssistant(cascade, issues, openDocs{docURI: true}, rec.publish, nil)
	a.Reconfigure(context.Background(), provider.Workspace{Root: "/work", Settings: settings})
	t.Cleanup(a.Close)
	return a, issues, rec
}

func TestRunSequence(t *testing.T) {
	seq := NewRunSequence()
	assert.Equal(t, 1, seq.Begin(docURI))
	assert.Equal(t, 2, seq.Begin(docURI))
	assert.Equal(t, 3, seq.Begin(docURI))
	assert.True(t, seq.Accept(docURI, 3))
	assert.False(t, seq.Accept(docURI, 1))
	assert.False(t, seq.Accept(docURI, 2))

	other := lsp.DocumentURI("file:///work/other.js")
	assert.Equal(t, 1, seq.Begin(other))
	assert.Equal(t, 2, seq.Begin(other))
	assert.True(t, seq.Accept(other, 1))
	assert.True(t, seq.Accept(other, 2))
}

func TestAssistantKeepsNewestResult(t *testing.T) {
	gates := map[string]chan struct{}{
		"1": make(chan struct{}),
		"2": make(chan struct{}),
		"3": make(chan struct{}),
	}
	p := &fakeProvider{name: "slow", lint: func(ctx context.Context, tr Trigger, doc provider.Document) (issue.IssueSet, error) {
		<-gates[doc.Text]
		return echo(ctx, tr, doc)
	}}
	a, issues, rec := newTestAssistant(t, config.Defaults(), p)
	ctx := context.Background()

	for _, text := range []string{"1", "2", "3"} {
		a.Schedule(ctx, OnChange, provider.Document{URI: docURI, Text: text})
	}

	close(gates["3"])
	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	close(gates["1"])
	close(gates["2"])
	a.Wait()

	set, ok := issues.Get(docURI)
	require.True(t, ok)
	require.Len(t, set, 1)
	assert.Equal(t, "3", set[0].Message)
	assert.Equal(t, 1, rec.count())
}

func TestAssistantEmptyDocument(t *testing.T) {
	p := &fakeProvider{name: "echo", lint: echo}
	a, issues, rec := newTestAssistant(t, config.Defaults(), p)
	ctx := context.Background()

	_, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "oops("})
	require.NoError(t, err)
	require.True(t, issues.Has(docURI))

	set, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: ""})
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.False(t, issues.Has(docURI))
	assert.Len(t, p.seen(), 1)
	assert.Equal(t, 2, rec.count())
}

func TestAssistantNotAvailable(t *testing.T) {
	p := &fakeProvider{name: "picky", canLint: func(provider.Document) bool { return false }}
	a, issues, _ := newTestAssistant(t, config.Defaults(), p)

	set, err := a.Lint(context.Background(), OnChange, provider.Document{URI: docURI, Text: "1"})
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, issue.NewInfo(provider.Source, NotAvailable), set[0])
	assert.True(t, issues.Has(docURI))

	hidden := config.Defaults()
	hidden.HideInfo = true
	a, issues, _ = newTestAssistant(t, hidden, p)
	set, err = a.Lint(context.Background(), OnChange, provider.Document{URI: docURI, Text: "1"})
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.False(t, issues.Has(docURI))
}

func TestAssistantCascade(t *testing.T) {
	unusable := &fakeProvider{name: "unusable", noSetup: true, lint: echo}
	picky := &fakeProvider{name: "picky", canLint: func(doc provider.Document) bool {
		return strings.HasPrefix(doc.Text, "#!")
	}, lint: echo}
	fallback := &fakeProvider{name: "fallback", lint: echo}

	a, _, _ := newTestAssistant(t, config.Defaults())
	names := a.Reconfigure(context.Background(), provider.Workspace{Settings: config.Defaults()})
	assert.Empty(t, names)

	a = NewAssistant(provider.Cascade{unusable, picky, fallback}, issue.NewCollection(), nil, nil, nil)
	t.Cleanup(a.Close)
	names = a.Reconfigure(context.Background(), provider.Workspace{Settings: config.Defaults()})
	assert.Equal(t, []string{"picky", "fallback"}, names)

	_, err := a.Lint(context.Background(), OnChange, provider.Document{URI: docURI, Text: "x = 1"})
	require.NoError(t, err)
	_, err = a.Lint(context.Background(), OnSave, provider.Document{URI: docURI, Text: "#!/usr/bin/osascript"})
	require.NoError(t, err)

	assert.Empty(t, unusable.seen())
	assert.Equal(t, []Trigger{OnSave}, picky.seen())
	assert.Equal(t, []Trigger{OnChange}, fallback.seen())
}

func TestAssistantFailureClears(t *testing.T) {
	fail := false
	p := &fakeProvider{name: "flaky", lint: func(ctx context.Context, tr Trigger, doc provider.Document) (issue.IssueSet, error) {
		if fail {
			return nil, errors.New("linter crashed")
		}
		return echo(ctx, tr, doc)
	}}
	a, issues, _ := newTestAssistant(t, config.Defaults(), p)
	ctx := context.Background()

	_, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "1"})
	require.NoError(t, err)
	require.True(t, issues.Has(docURI))

	fail = true
	_, err = a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "2"})
	assert.EqualError(t, err, "linter crashed")
	assert.False(t, issues.Has(docURI))
}

func TestAssistantClosedDocument(t *testing.T) {
	p := &fakeProvider{name: "echo", lint: echo}
	a, issues, rec := newTestAssistant(t, config.Defaults(), p)

	closed := lsp.DocumentURI("file:///work/closed.js")
	set, err := a.Lint(context.Background(), OnChange, provider.Document{URI: closed, Text: "1"})
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.False(t, issues.Has(closed))
	assert.Zero(t, rec.count())
}

func TestAssistantUnchangedResultNotRepublished(t *testing.T) {
	p := &fakeProvider{name: "echo", lint: echo}
	a, _, rec := newTestAssistant(t, config.Defaults(), p)
	ctx := context.Background()

	for range 3 {
		_, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "same"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rec.count())
}

func TestAssistantModeOff(t *testing.T) {
	p := &fakeProvider{name: "echo", lint: echo}
	a, issues, _ := newTestAssistant(t, config.Defaults(), p)
	ctx := context.Background()

	_, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "1"})
	require.NoError(t, err)
	require.True(t, issues.Has(docURI))

	off := config.Defaults()
	off.Mode = config.ModeOff
	a.Reconfigure(ctx, provider.Workspace{Settings: off})
	set, err := a.Lint(ctx, OnChange, provider.Document{URI: docURI, Text: "1"})
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.Empty(t, issues.URIs())
	assert.Len(t, p.seen(), 1)
}

// gatedDocs pauses the first IsOpen call until release is closed.
type gatedDocs struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	open map[lsp.DocumentURI]bool
}

func newGatedDocs(uris ...lsp.DocumentURI) *gatedDocs {
	d := &gatedDocs{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		open:    map[lsp.DocumentURI]bool{},
	}
	for _, uri := range uris {
		d.open[uri] = true
	}
	return d
}

func (d *gatedDocs) IsOpen(uri lsp.DocumentURI) bool {
	d.once.Do(func() {
		close(d.entered)
		<-d.release
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open[uri]
}

func (d *gatedDocs) close(uri lsp.DocumentURI) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, uri)
}

func TestAssistantAcceptedResultStoredInOrder(t *testing.T) {
	second := make(chan struct{})
	p := &fakeProvider{name: "echo", lint: func(ctx context.Context, tr Trigger, doc provider.Document) (issue.IssueSet, error) {
		if doc.Text == "2" {
			<-second
		}
		return echo(ctx, tr, doc)
	}}
	docs := newGatedDocs(docURI)
	issues := issue.NewCollection()
	a := NewAssistant(provider.Cascade{p}, issues, docs, nil, nil)
	t.Cleanup(a.Close)
	ctx := context.Background()
	a.Reconfigure(ctx, provider.Workspace{Settings: config.Defaults()})

	a.Schedule(ctx, OnChange, provider.Document{URI: docURI, Text: "1"})
	a.Schedule(ctx, OnChange, provider.Document{URI: docURI, Text: "2"})

	// Run 1 has been accepted and is paused before storing.
	<-docs.entered
	close(second)
	time.Sleep(50 * time.Millisecond)
	close(docs.release)
	a.Wait()

	set, ok := issues.Get(docURI)
	require.True(t, ok)
	require.Len(t, set, 1)
	assert.Equal(t, "2", set[0].Message)
}

func TestAssistantCloseDuringStore(t *testing.T) {
	p := &fakeProvider{name: "echo", lint: echo}
	docs := newGatedDocs(docURI)
	issues := issue.NewCollection()
	a := NewAssistant(provider.Cascade{p}, issues, docs, nil, nil)
	t.Cleanup(a.Close)
	ctx := context.Background()
	a.Reconfigure(ctx, provider.Workspace{Settings: config.Defaults()})

	a.Schedule(ctx, OnChange, provider.Document{URI: docURI, Text: "1"})
	<-docs.entered

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		a.Hold(func() {
			docs.close(docURI)
			issues.Remove(docURI)
		})
	}()
	time.Sleep(50 * time.Millisecond)
	close(docs.release)
	<-closed
	a.Wait()

	assert.False(t, issues.Has(docURI))
}
