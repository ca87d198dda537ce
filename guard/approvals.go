package guard

import (
	"context"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
	ApprovalExpired  ApprovalStatus = "expired"
)

// ApprovalRecord is one operator decision on a validated command. Only the
// redacted command text is stored.
type ApprovalRecord struct {
	ID         string
	SessionID  string
	TurnID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ResolvedAt *time.Time

	Status  ApprovalStatus
	Actor   string
	Comment string

	Canonical       string
	CommandHash     string
	CommandRedacted string
	Cwd             string
}

type ApprovalStore interface {
	Create(ctx context.Context, rec ApprovalRecord) (string, error)
	Get(ctx context.Context, id string) (ApprovalRecord, bool, error)
	Resolve(ctx context.Context, id string, status ApprovalStatus, actor string, comment string) error
	Close() error
}
