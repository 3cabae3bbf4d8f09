// Package process runs linter subprocesses.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/corymhall/jxalsp/debug"
	"golang.org/x/sync/errgroup"
)

// waitDelay bounds how long a cancelled command may hold its output pipes
// open through orphaned children.
const waitDelay = 2 * time.Second

// Command describes a subprocess.
type Command struct {
	Path string
	Args []string
	// Env holds KEY=VALUE pairs added to the server's environment.
	Env []string
	Dir string
	// Shell runs the command through /bin/sh so PATH lookup matches the
	// user's shell. Arguments are passed through unchanged.
	Shell bool
	// Stdin, when non-nil, is written to the process and then closed.
	Stdin []byte
}

func (c Command) String() string {
	return fmt.Sprintf("%s %q", c.Path, c.Args)
}

// Result is the outcome of a finished subprocess.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner bounds the number of subprocesses running at once.
type Runner struct {
	once     sync.Once
	limit    int
	inFlight chan struct{}
}

// NewRunner returns a Runner allowing limit concurrent subprocesses. A limit
// below one allows one.
func NewRunner(limit int) *Runner {
	return &Runner{limit: limit}
}

func (r *Runner) initialize() {
	r.once.Do(func() {
		if r.limit < 1 {
			r.limit = 1
		}
		r.inFlight = make(chan struct{}, r.limit)
	})
}

func (r *Runner) acquire(ctx context.Context) (func(), error) {
	r.initialize()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r.inFlight <- struct{}{}:
		return func() { <-r.inFlight }, nil
	}
}

func (c Command) build(ctx context.Context) *exec.Cmd {
	var cmd *exec.Cmd
	if c.Shell {
		args := append([]string{"-c", `"$0" "$@"`, c.Path}, c.Args...)
		cmd = exec.CommandContext(ctx, "/bin/sh", args...)
	} else {
		cmd = exec.CommandContext(ctx, c.Path, c.Args...)
	}
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	return cmd
}

// exitCode separates a nonzero exit, which is a result, from a failure to run.
func exitCode(ctx context.Context, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

// Run executes c and waits for it to exit. A nonzero exit status is reported
// in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, c Command) (Result, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	ctx, done := debug.Start(ctx, "process.run", "path", c.Path)
	defer done()

	var stdout, stderr bytes.Buffer
	cmd := c.build(ctx)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code, err := exitCode(ctx, cmd.Run())
	if err != nil {
		return Result{}, fmt.Errorf("running %s: %w", c, err)
	}
	debug.Trace.Log(ctx, "process exited", "code", code, "stdout", stdout.Len(), "stderr", stderr.Len())
	return Result{ExitCode: code, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// Lines executes c, handing every line of output to the callbacks as it is
// read, and returns the exit status. Either callback may be nil.
func (r *Runner) Lines(ctx context.Context, c Command, onStdout, onStderr func(string)) (int, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, done := debug.Start(ctx, "process.lines", "path", c.Path)
	defer done()

	cmd := c.build(ctx)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", c, err)
	}

	// cmd.Wait may not run before the pipes are drained, so WaitDelay does
	// not cover them. Close them ourselves once a cancelled run overstays.
	drained := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		select {
		case <-drained:
		case <-time.After(waitDelay):
			_ = stdout.Close()
			_ = stderr.Close()
		}
	})
	defer stop()

	var g errgroup.Group
	g.Go(func() error { return scanLines(stdout, onStdout) })
	g.Go(func() error { return scanLines(stderr, onStderr) })
	scanErr := g.Wait()
	close(drained)

	code, err := exitCode(ctx, cmd.Wait())
	if err != nil {
		return 0, fmt.Errorf("running %s: %w", c, err)
	}
	if scanErr != nil {
		return code, fmt.Errorf("reading output of %s: %w", c, scanErr)
	}
	return code, nil
}

func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
