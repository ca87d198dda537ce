// Package shell runs validated commands in a subordinate shell process.
//
// Each call starts a fresh interpreter in the session's current directory,
// enforces the policy timeout and, for directory-changing commands, reports
// where the shell ended up so the session can follow it inside the root.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/internal/strutil"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
)

const (
	DefaultMaxOutputBytes = 1 << 20

	// waitDelay bounds how long Wait keeps reading pipes held open by
	// descendants after the shell itself has exited or been killed.
	waitDelay = 500 * time.Millisecond
)

// ErrNotValidated is returned when Run is handed an Allowed value that did
// not come from guard.Validate, or one validated in another directory.
var ErrNotValidated = errors.New("command was not validated for this session")

// SpawnError means the interpreter could not be started at all.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not start %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

type Result struct {
	// ExitCode is nil only when TimedOut is set. A process killed by a
	// signal reports -1.
	ExitCode *int
	Stdout   string
	Stderr   string
	TimedOut bool

	WorkingDirectoryAfter string
	ConfinementViolation  bool
	Violation             string

	Truncated bool
	Duration  time.Duration
}

func (r Result) Succeeded() bool {
	return !r.TimedOut && r.ExitCode != nil && *r.ExitCode == 0
}

type Executor struct {
	shell     Shell
	maxOutput int
	env       []string
	log       *slog.Logger
}

type Option func(*Executor)

// WithMaxOutputBytes caps each captured stream; 0 keeps everything.
func WithMaxOutputBytes(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxOutput = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEnv replaces the inherited environment. NO_COLOR=1 is always added.
func WithEnv(env []string) Option {
	return func(e *Executor) {
		e.env = append([]string(nil), env...)
	}
}

func New(sh Shell, opts ...Option) *Executor {
	e := &Executor{
		shell:     sh,
		maxOutput: DefaultMaxOutputBytes,
		env:       os.Environ(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Executor) Shell() Shell { return e.shell }

// Run executes cmd in sess.Current() under pol's timeout.
//
// The session is only written after the command finished within the
// timeout and its final directory was confirmed inside the root. A timeout
// is reported in the Result, not as an error; errors are reserved for
// spawn failures, unvalidated input and cancellation of ctx.
func (e *Executor) Run(ctx context.Context, cmd guard.Allowed, pol *policy.Policy, sess *session.State) (Result, error) {
	if !cmd.Valid() {
		return Result{}, ErrNotValidated
	}
	if cmd.ValidatedIn() != sess.Current() {
		return Result{}, fmt.Errorf("%w: validated in %s, session is in %s", ErrNotValidated, cmd.ValidatedIn(), sess.Current())
	}

	script := cmd.Raw()
	marker := ""
	if cmd.ChangesDirectory() {
		marker = "__CMDBRIDGE_CWD_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "__"
		script = e.shell.withLocationQuery(script, marker)
	}

	runCtx, cancel := context.WithTimeout(ctx, pol.Timeout())
	defer cancel()

	proc := exec.CommandContext(runCtx, e.shell.Path, e.shell.args(script)...)
	proc.Dir = sess.Current()
	proc.Env = append(append([]string(nil), e.env...), "NO_COLOR=1")
	proc.WaitDelay = waitDelay
	tree, err := newProcessTree(proc)
	if err != nil {
		return Result{}, &SpawnError{Shell: e.shell.Path, Err: err}
	}
	defer tree.release()
	var killed atomic.Bool
	proc.Cancel = killTree(tree, &killed)

	stdout := newCapture(e.maxOutput)
	stderr := newCapture(e.maxOutput)
	proc.Stdout = stdout
	proc.Stderr = stderr

	start := time.Now()
	if err := proc.Start(); err != nil {
		return Result{}, &SpawnError{Shell: e.shell.Path, Err: err}
	}
	if err := tree.attach(); err != nil {
		_ = tree.kill()
		_ = proc.Wait()
		return Result{}, &SpawnError{Shell: e.shell.Path, Err: err}
	}
	waitErr := proc.Wait()
	res := Result{
		Duration:  time.Since(start),
		Truncated: stdout.truncated() || stderr.truncated(),
		Stderr:    stderr.text(-1),
	}

	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("command cancelled: %w", ctx.Err())
	}
	if killed.Load() {
		res.TimedOut = true
		res.Stdout = stdout.text(-1)
		res.WorkingDirectoryAfter = sess.Current()
		e.log.Warn("command_timed_out",
			"canonical", cmd.Canonical(),
			"timeout_seconds", pol.TimeoutSeconds(),
		)
		return res, nil
	}

	code, err := exitCode(proc, waitErr)
	if err != nil {
		return Result{}, fmt.Errorf("wait for %s: %w", e.shell.Name, err)
	}
	res.ExitCode = &code

	if marker == "" {
		res.Stdout = stdout.text(-1)
	} else {
		e.follow(&res, stdout, marker, sess)
	}
	res.WorkingDirectoryAfter = sess.Current()

	e.log.Info("command_executed",
		"canonical", cmd.Canonical(),
		"exit_code", code,
		"duration_ms", res.Duration.Milliseconds(),
		"truncated", res.Truncated,
	)
	return res, nil
}

// killTree returns the cancellation hook for a run. killed is set only when
// the kill reached a live process, so a command that exits on its own just
// before the deadline is not reported as timed out.
func killTree(tree *processTree, killed *atomic.Bool) func() error {
	return func() error {
		err := tree.kill()
		if !errors.Is(err, os.ErrProcessDone) {
			killed.Store(true)
		}
		return err
	}
}

// follow splits the location query off stdout and moves the session when
// the reported directory is inside the root.
func (e *Executor) follow(res *Result, stdout *capture, marker string, sess *session.State) {
	dir, end, ok := parseLocation(stdout, marker, e.shell.Dialect)
	res.Stdout = stdout.text(end)
	if !ok {
		e.log.Warn("location_query_missing", "cwd", sess.Current())
		return
	}
	if dir == "" {
		res.ConfinementViolation = true
		res.Violation = "the shell did not report a filesystem location"
		return
	}
	from := sess.Current()
	if err := sess.Move(dir); err != nil {
		res.ConfinementViolation = true
		res.Violation = fmt.Sprintf("resulting directory %s was not accepted: %v", dir, err)
		return
	}
	if from != sess.Current() {
		e.log.Info("session_moved", "from", from, "to", sess.Current())
	}
}

// parseLocation finds the last marker line in the captured stream. It
// returns the directory printed after it and the stream offset where the
// command's own output ends.
func parseLocation(c *capture, marker string, d Dialect) (string, int64, bool) {
	win, base := c.window()
	s := string(win)
	idx := -1
	for from := len(s); ; {
		i := strings.LastIndex(s[:from], marker)
		if i < 0 {
			break
		}
		after := s[i+len(marker):]
		atLineStart := i == 0 || s[i-1] == '\n'
		atLineEnd := after == "" || after[0] == '\n' || after[0] == '\r'
		if atLineStart && atLineEnd {
			idx = i
			break
		}
		from = i
	}
	if idx < 0 {
		return "", -1, false
	}
	end := idx
	if d == POSIX && end > 0 && s[end-1] == '\n' {
		// the newline printf emitted before the marker
		end--
	}
	dir := strutil.LastLine(s[idx+len(marker):])
	return dir, base + int64(end), true
}

func exitCode(proc *exec.Cmd, waitErr error) (int, error) {
	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		return proc.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, waitErr
}
