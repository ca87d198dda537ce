// Package history persists agent turns and session snapshots.
package history

import (
	"context"
	"time"

	"github.com/quailyquaily/cmdbridge/session"
)

// Entry is one recorded turn. Command, Stdout and Stderr are stored as
// given; callers redact before recording.
type Entry struct {
	SessionID  string
	TurnID     string
	Command    string
	Canonical  string
	Status     string
	ReasonCode string
	Detail     string

	ExitCode             *int
	TimedOut             bool
	ConfinementViolation bool
	Truncated            bool
	Stdout               string
	Stderr               string
	CwdBefore            string
	CwdAfter             string
	Duration             time.Duration

	CreatedAt time.Time
}

type ListOptions struct {
	SessionID string
	Limit     int
}

type Store interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, opt ListOptions) ([]Entry, error)
	SaveSnapshot(ctx context.Context, sessionID string, snap session.Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID string) (session.Snapshot, bool, error)
}
