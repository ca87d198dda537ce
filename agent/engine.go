// Package agent drives turns: a proposed command is validated, confirmed,
// executed and its result handed back to whoever proposed it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/history"
	"github.com/quailyquaily/cmdbridge/session"
	"github.com/quailyquaily/cmdbridge/shell"
)

// ErrBusy is returned by Turn while another turn of the same engine is in
// flight.
var ErrBusy = errors.New("a command is already running in this session")

// Engine owns one session. Turns are strictly sequential.
type Engine struct {
	guard *guard.Guard
	exec  *shell.Executor
	sess  *session.State

	confirmer Confirmer
	history   history.Store
	sessionID string
	maxTurns  int
	log       *slog.Logger

	mu sync.Mutex
}

func New(g *guard.Guard, ex *shell.Executor, sess *session.State, opts ...Option) *Engine {
	e := &Engine{
		guard:     g,
		exec:      ex,
		sess:      sess,
		sessionID: "ses_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.log = e.log.With("session_id", e.sessionID)
	return e
}

func (e *Engine) SessionID() string { return e.sessionID }

// Session exposes the engine's session for display. Callers must not move
// it.
func (e *Engine) Session() *session.State { return e.sess }

// Turn runs one candidate command through validation, confirmation and
// execution. Rejections, denials, timeouts and spawn failures are reported
// in the Outcome; the error is reserved for ErrBusy and cancellation.
func (e *Engine) Turn(ctx context.Context, candidate string) (Outcome, error) {
	if !e.mu.TryLock() {
		return Outcome{}, ErrBusy
	}
	defer e.mu.Unlock()

	turnID := "turn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	ctx = guard.WithTurn(ctx, guard.Turn{SessionID: e.sessionID, TurnID: turnID})
	pol := e.guard.Policy()
	cwdBefore := e.sess.Current()
	out := Outcome{
		TurnID:    turnID,
		Candidate: candidate,
		Cwd:       cwdBefore,
		Timeout:   pol.Timeout(),
	}

	allowed, err := e.guard.Check(ctx, candidate, e.sess)
	if err != nil {
		var rej *guard.Rejection
		if !errors.As(err, &rej) {
			return Outcome{}, err
		}
		out.Status = StatusRejected
		out.Rejection = rej
		e.record(ctx, out, cwdBefore)
		return out, nil
	}
	out.Canonical = allowed.Canonical()

	approved, actor, err := e.confirm(ctx, allowed)
	if err != nil {
		return Outcome{}, err
	}
	out.ApprovalID, _ = e.guard.RecordConfirmation(ctx, allowed, approved, actor)
	if !approved {
		out.Status = StatusDenied
		e.record(ctx, out, cwdBefore)
		return out, nil
	}

	res, err := e.exec.Run(ctx, allowed, pol, e.sess)
	if err != nil {
		se, ok := asSpawnError(err)
		if !ok {
			return Outcome{}, err
		}
		e.log.Error("command_spawn_failed", "shell", se.Shell, "error", se.Err.Error())
		out.Status = StatusSpawnFailed
		out.Err = se
		e.record(ctx, out, cwdBefore)
		return out, nil
	}
	out.Result = &res
	out.Status = outcomeStatus(res)
	out.Cwd = e.sess.Current()

	e.guard.RecordExecution(ctx, allowed, guard.Execution{
		ExitCode:             res.ExitCode,
		TimedOut:             res.TimedOut,
		ConfinementViolation: res.ConfinementViolation,
		Duration:             res.Duration,
		Stdout:               res.Stdout,
		Stderr:               res.Stderr,
		CwdAfter:             res.WorkingDirectoryAfter,
	})
	e.record(ctx, out, cwdBefore)
	if out.Cwd != cwdBefore {
		e.saveSnapshot(ctx)
	}
	return out, nil
}

// confirm asks the confirmer. A failing confirmer denies unless ctx itself
// was cancelled.
func (e *Engine) confirm(ctx context.Context, a guard.Allowed) (bool, string, error) {
	if e.confirmer == nil {
		if e.guard.ConfirmRequired() {
			return false, "none", nil
		}
		return true, "auto", nil
	}
	name := "operator"
	if n, ok := e.confirmer.(actor); ok {
		name = n.Actor()
	}
	ok, err := e.confirmer.Confirm(ctx, Request{
		Command:   a.Raw(),
		Canonical: a.Canonical(),
		Cwd:       a.ValidatedIn(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, name, fmt.Errorf("confirmation: %w", ctx.Err())
		}
		e.log.Warn("confirm_error", "error", err.Error())
		return false, name, nil
	}
	return ok, name, nil
}

// Run asks p for commands until it proposes none, ctx is done or the turn
// limit is reached. onOutcome, when set, sees every outcome before the
// proposer gets its feedback.
func (e *Engine) Run(ctx context.Context, p Proposer, onOutcome func(Outcome)) error {
	var last *Feedback
	for turns := 0; ; turns++ {
		if e.maxTurns > 0 && turns >= e.maxTurns {
			e.log.Info("max_turns_reached", "max_turns", e.maxTurns)
			return nil
		}
		prop, err := p.Propose(ctx, last)
		if err != nil {
			return err
		}
		if prop.None {
			return nil
		}
		out, err := e.Turn(ctx, prop.Command)
		if err != nil {
			return err
		}
		if onOutcome != nil {
			onOutcome(out)
		}
		fb := out.Feedback()
		last = &fb
	}
}

func (e *Engine) record(ctx context.Context, out Outcome, cwdBefore string) {
	if e.history == nil {
		return
	}
	entry := history.Entry{
		SessionID: e.sessionID,
		TurnID:    out.TurnID,
		Command:   e.guard.Redact(out.Candidate),
		Canonical: out.Canonical,
		Status:    string(out.Status),
		CwdBefore: cwdBefore,
		CwdAfter:  out.Cwd,
	}
	if out.Rejection != nil {
		entry.ReasonCode = string(out.Rejection.Code)
		entry.Detail = e.guard.Redact(out.Rejection.Detail)
	}
	if out.Err != nil {
		entry.Detail = out.Err.Error()
	}
	if r := out.Result; r != nil {
		entry.ExitCode = r.ExitCode
		entry.TimedOut = r.TimedOut
		entry.ConfinementViolation = r.ConfinementViolation
		entry.Truncated = r.Truncated
		entry.Stdout = e.guard.Redact(r.Stdout)
		entry.Stderr = e.guard.Redact(r.Stderr)
		entry.Duration = r.Duration
		if r.ConfinementViolation {
			entry.Detail = r.Violation
		}
	}
	if err := e.history.Record(ctx, entry); err != nil {
		e.log.Warn("history_record_error", "turn_id", out.TurnID, "error", err.Error())
	}
}

func (e *Engine) saveSnapshot(ctx context.Context) {
	if e.history == nil {
		return
	}
	if err := e.history.SaveSnapshot(ctx, e.sessionID, e.sess.Snapshot()); err != nil {
		e.log.Warn("session_snapshot_error", "error", err.Error())
	}
}
