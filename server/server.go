package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/issue"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/parser"
	"github.com/corymhall/jxalsp/process"
	"github.com/corymhall/jxalsp/provider"
	"github.com/corymhall/jxalsp/telemetry"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
)

type options struct {
	config    config.Server
	cascade   provider.Cascade
	runner    *process.Runner
	telemetry *telemetry.Telemetry
	ranger    *parser.Ranger
	exit      func(code int)
	version   string
}

// An Option configures the server built by New.
type Option func(*options)

// WithConfig sets the server process configuration.
func WithConfig(cfg config.Server) Option {
	return func(o *options) { o.config = cfg }
}

// WithCascade replaces the default provider cascade.
func WithCascade(c provider.Cascade) Option {
	return func(o *options) { o.cascade = c }
}

func WithRunner(r *process.Runner) Option {
	return func(o *options) { o.runner = r }
}

func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithRanger sets the parser used to widen point issues. The server closes
// it on shutdown.
func WithRanger(r *parser.Ranger) Option {
	return func(o *options) { o.ranger = r }
}

// WithExit replaces os.Exit, which is called on the exit notification.
func WithExit(fn func(code int)) Option {
	return func(o *options) { o.exit = fn }
}

func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New creates an LSP server that lints JXA documents and publishes the
// results to client.
func New(logger *log.Logger, client lsp.Client, opts ...Option) lsp.Server {
	return newServer(logger, client, opts...)
}

func newServer(logger *log.Logger, client lsp.Client, opts ...Option) *server {
	o := options{
		config:  config.DefaultServer(),
		exit:    os.Exit,
		version: "dev",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = process.NewRunner(o.config.MaxConcurrentRuns)
	}
	if o.cascade == nil {
		o.cascade = provider.DefaultCascade(o.runner, o.config)
	}
	if o.telemetry == nil {
		o.telemetry = telemetry.Noop()
	}
	if o.ranger == nil {
		r, err := parser.NewRanger()
		contract.AssertNoErrorf(err, "failed to create ranger")
		o.ranger = r
	}

	s := &server{
		logger:         logger,
		client:         client,
		config:         o.config,
		version:        o.version,
		exit:           o.exit,
		cascade:        o.cascade,
		runner:         o.runner,
		telemetry:      o.telemetry,
		ranger:         o.ranger,
		overlays:       NewOverlays(),
		issues:         issue.NewCollection(),
		progress:       NewTracker(client),
		view:           NewView("", o.config.Defaults),
		pendingRenames: make(map[lsp.DocumentURI]lsp.DocumentURI),
	}
	s.assistant = NewAssistant(o.cascade, s.issues, s.overlays, s.publish, o.telemetry)
	return s
}

type serverState int

const (
	serverCreated      = serverState(iota)
	serverInitializing // set once the server has received "initialize" request
	serverInitialized  // set once the server has received "initialized" request
	serverShutDown
)

func (s serverState) String() string {
	switch s {
	case serverCreated:
		return "created"
	case serverInitializing:
		return "initializing"
	case serverInitialized:
		return "initialized"
	case serverShutDown:
		return "shutDown"
	}
	return fmt.Sprintf("(unknown state: %d)", int(s))
}

type server struct {
	logger  *log.Logger
	client  lsp.Client
	config  config.Server
	version string
	exit    func(int)

	stateMu sync.Mutex
	state   serverState

	// view is replaced once during initialize, when the root is known.
	viewMu sync.Mutex
	view   *View

	cascade   provider.Cascade
	runner    *process.Runner
	telemetry *telemetry.Telemetry
	ranger    *parser.Ranger

	overlays  *Overlays
	issues    *issue.Collection
	assistant *Assistant

	// progress is the progress tracker used to report progress
	// to the client.
	progress *Tracker

	watcher *Watcher

	renameMu sync.Mutex
	// pendingRenames maps the old URI of a file being renamed to its new one.
	pendingRenames map[lsp.DocumentURI]lsp.DocumentURI

	// pullConfiguration is set when the client answers
	// workspace/configuration.
	pullConfiguration bool

	activationMu    sync.Mutex
	activationShown bool
}

func (s *server) Logger() *log.Logger {
	return s.logger
}

func (s *server) currentView() *View {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	return s.view
}

func (s *server) setView(v *View) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.view = v
}

// reconfigure pushes the current workspace settings to the assistant.
func (s *server) reconfigure(ctx context.Context) []string {
	return s.assistant.Reconfigure(ctx, s.currentView().Workspace())
}

// Shutdown implements the 'shutdown' LSP handler. It releases resources
// associated with the server and waits for all ongoing work to complete.
func (s *server) Shutdown(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == serverShutDown {
		return nil
	}
	s.state = serverShutDown

	ctx, done := debug.Start(ctx, "shutdown")
	defer done()
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			debug.LogError(ctx, "error stopping watcher", err)
		}
		s.watcher = nil
	}
	s.assistant.Close()
	s.assistant.Clear(ctx)
	if err := s.cascade.Dispose(); err != nil {
		debug.LogError(ctx, "error disposing providers", err)
	}
	s.ranger.Close()
	return nil
}

// Exit ends the process, with status 1 when the client skipped shutdown.
func (s *server) Exit(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != serverShutDown {
		s.exit(1)
		return nil
	}
	s.exit(0)
	return nil
}

// initialized reports whether the server accepts document notifications.
func (s *server) initialized() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state == serverInitializing || s.state == serverInitialized
}
