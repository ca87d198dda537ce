package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ReasonCode classifies why a candidate command was refused.
type ReasonCode string

const (
	ReasonEmptyCommand     ReasonCode = "EmptyCommand"
	ReasonInjectionPattern ReasonCode = "InjectionPattern"
	ReasonNotInAllowlist   ReasonCode = "NotInAllowlist"
	ReasonMalformedSyntax  ReasonCode = "MalformedSyntax"
)

// Rejection is returned by Validate for every refused command.
type Rejection struct {
	Code   ReasonCode
	Detail string

	// Confinement marks NotInAllowlist rejections caused by a directory
	// target outside the session root.
	Confinement bool
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Code)
	}
	return string(r.Code) + ": " + r.Detail
}

func reject(code ReasonCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Allowed is a command that passed validation. Its fields are unexported so
// that only Validate can produce a usable value; the zero value reports
// Valid() == false and executors refuse it.
type Allowed struct {
	raw       string
	identity  string
	canonical string
	changesWD bool
	target    string
	cwd       string
}

func (a Allowed) Valid() bool { return a.raw != "" && a.canonical != "" }

// Raw is the command text exactly as proposed; it is what the shell runs.
func (a Allowed) Raw() string { return a.raw }

// Identity is the leading token as typed.
func (a Allowed) Identity() string { return a.identity }

// Canonical is the identity after alias resolution.
func (a Allowed) Canonical() string { return a.canonical }

func (a Allowed) ChangesDirectory() bool { return a.changesWD }

// Target is the lexically resolved destination of a directory-changing
// command, empty otherwise.
func (a Allowed) Target() string { return a.target }

// ValidatedIn is the session directory the command was validated against.
func (a Allowed) ValidatedIn() string { return a.cwd }

type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReject Decision = "reject"
	DecisionDeny   Decision = "deny"
)

type EventType string

const (
	EventValidated    EventType = "CommandValidated"
	EventConfirmation EventType = "CommandConfirmation"
	EventExecuted     EventType = "CommandExecuted"
)

type AuditEvent struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id,omitempty"`
	TurnID    string    `json:"turn_id,omitempty"`
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`

	CommandRedacted string `json:"command_redacted"`
	CommandHash     string `json:"command_hash,omitempty"`
	Canonical       string `json:"canonical,omitempty"`
	Cwd             string `json:"cwd,omitempty"`

	Decision   Decision `json:"decision,omitempty"`
	ReasonCode string   `json:"reason_code,omitempty"`
	Detail     string   `json:"detail,omitempty"`

	ApprovalRequestID string `json:"approval_request_id,omitempty"`
	Actor             string `json:"actor,omitempty"`

	ExitCode             *int   `json:"exit_code,omitempty"`
	TimedOut             bool   `json:"timed_out,omitempty"`
	ConfinementViolation bool   `json:"confinement_violation,omitempty"`
	DurationMs           int64  `json:"duration_ms,omitempty"`
	OutputExcerpt        string `json:"output_excerpt,omitempty"`
	CwdAfter             string `json:"cwd_after,omitempty"`
}

// CommandHash identifies a command in the directory it was validated in.
func CommandHash(raw, cwd string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(cwd) + "\x00" + raw))
	return hex.EncodeToString(sum[:])
}

func newEventID(turnID string, typ EventType, ts time.Time) string {
	seed := fmt.Sprintf("%s|%s|%s", turnID, typ, ts.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(seed))
	return "evt_" + hex.EncodeToString(sum[:8])
}
