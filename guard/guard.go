// Package guard decides whether a proposed command may run and keeps the
// audit trail of every decision.
//
// Validate is the pure check. Guard wraps it with redaction, audit events
// and the optional approval store; the agent engine talks to a Guard.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/cmdbridge/internal/strutil"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
)

type Guard struct {
	cfg       Config
	pol       *policy.Policy
	redactor  *Redactor
	audit     AuditSink
	approvals ApprovalStore
	log       *slog.Logger
}

// New builds a Guard. sink and approvals may be nil.
func New(cfg Config, pol *policy.Policy, sink AuditSink, approvals ApprovalStore, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	if cfg.OutputExcerptBytes <= 0 {
		cfg.OutputExcerptBytes = defaultOutputExcerptBytes
	}
	return &Guard{
		cfg:       cfg,
		pol:       pol,
		redactor:  NewRedactor(cfg.Redaction),
		audit:     sink,
		approvals: approvals,
		log:       log,
	}
}

func (g *Guard) Policy() *policy.Policy { return g.pol }

// ConfirmRequired reports whether commands need an operator decision.
func (g *Guard) ConfirmRequired() bool { return g.cfg.Confirm }

func (g *Guard) Redact(s string) string { return g.redactor.Redact(s) }

// Check validates raw in the session's current directory and records the
// decision. The returned error is the *Rejection from Validate.
func (g *Guard) Check(ctx context.Context, raw string, sess *session.State) (Allowed, error) {
	a, err := Validate(raw, g.pol, sess)
	ev := g.event(ctx, EventValidated, raw, sess.Current())
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			ev.Decision = DecisionReject
			ev.ReasonCode = string(rej.Code)
			ev.Detail = g.Redact(rej.Detail)
			g.log.Info("command_rejected",
				"reason", rej.Code,
				"confinement", rej.Confinement,
				"command", ev.CommandRedacted,
			)
		}
		g.emit(ctx, ev)
		return Allowed{}, err
	}
	ev.Decision = DecisionAllow
	ev.Canonical = a.Canonical()
	g.emit(ctx, ev)
	return a, nil
}

// RecordConfirmation stores the operator's decision on a. When the approval
// store is enabled the decision is persisted and its id returned.
func (g *Guard) RecordConfirmation(ctx context.Context, a Allowed, approved bool, actor string) (string, error) {
	ev := g.event(ctx, EventConfirmation, a.Raw(), a.ValidatedIn())
	ev.Canonical = a.Canonical()
	ev.Actor = actor
	ev.Decision = DecisionAllow
	if !approved {
		ev.Decision = DecisionDeny
	}

	var (
		id     string
		stored error
	)
	if g.approvals != nil {
		turn, _ := TurnFromContext(ctx)
		id, stored = g.approvals.Create(ctx, ApprovalRecord{
			SessionID:       turn.SessionID,
			TurnID:          turn.TurnID,
			Canonical:       a.Canonical(),
			CommandHash:     ev.CommandHash,
			CommandRedacted: ev.CommandRedacted,
			Cwd:             a.ValidatedIn(),
		})
		if stored == nil {
			status := ApprovalApproved
			if !approved {
				status = ApprovalDenied
			}
			stored = g.approvals.Resolve(ctx, id, status, actor, "")
		}
		if stored != nil {
			g.log.Warn("approval_store_error", "error", stored.Error())
		}
		ev.ApprovalRequestID = id
	}
	g.emit(ctx, ev)
	return id, stored
}

// Execution is what the executor observed, reduced to what the audit trail
// keeps.
type Execution struct {
	ExitCode             *int
	TimedOut             bool
	ConfinementViolation bool
	Duration             time.Duration
	Stdout               string
	Stderr               string
	CwdAfter             string
}

func (g *Guard) RecordExecution(ctx context.Context, a Allowed, x Execution) {
	ev := g.event(ctx, EventExecuted, a.Raw(), a.ValidatedIn())
	ev.Canonical = a.Canonical()
	ev.ExitCode = x.ExitCode
	ev.TimedOut = x.TimedOut
	ev.ConfinementViolation = x.ConfinementViolation
	ev.DurationMs = x.Duration.Milliseconds()
	ev.CwdAfter = x.CwdAfter
	ev.OutputExcerpt = g.excerpt(x.Stdout, x.Stderr)
	if x.ConfinementViolation {
		g.log.Warn("confinement_violation",
			"command", ev.CommandRedacted,
			"cwd", a.ValidatedIn(),
		)
	}
	g.emit(ctx, ev)
}

func (g *Guard) Close() error {
	var errs []error
	if g.audit != nil {
		errs = append(errs, g.audit.Close())
	}
	if g.approvals != nil {
		errs = append(errs, g.approvals.Close())
	}
	return errors.Join(errs...)
}

func (g *Guard) event(ctx context.Context, typ EventType, raw, cwd string) AuditEvent {
	turn, _ := TurnFromContext(ctx)
	now := time.Now().UTC()
	return AuditEvent{
		EventID:         newEventID(turn.TurnID, typ, now),
		SessionID:       turn.SessionID,
		TurnID:          turn.TurnID,
		Timestamp:       now,
		Type:            typ,
		CommandRedacted: g.Redact(raw),
		CommandHash:     CommandHash(raw, cwd),
		Cwd:             cwd,
	}
}

func (g *Guard) emit(ctx context.Context, ev AuditEvent) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Emit(ctx, ev); err != nil {
		g.log.Warn("audit_emit_error", "type", ev.Type, "error", err.Error())
	}
}

func (g *Guard) excerpt(stdout, stderr string) string {
	out := strings.TrimSpace(stdout)
	if errText := strings.TrimSpace(stderr); errText != "" {
		if out != "" {
			out += "\n"
		}
		out += "stderr: " + errText
	}
	return strutil.TruncateUTF8(g.Redact(out), g.cfg.OutputExcerptBytes)
}
