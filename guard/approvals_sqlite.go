package guard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

const defaultApprovalTTL = 5 * time.Minute

var (
	ErrApprovalNotPending  = errors.New("approval is not pending")
	ErrApprovalStoreClosed = errors.New("approval store is closed")
)

type SQLiteApprovalStore struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteApprovalStore(dsn string) (*SQLiteApprovalStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open approval store: %w", err)
	}
	// one writer; sqlite serialises anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(approvalsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate approval store: %w", err)
	}
	return &SQLiteApprovalStore{dsn: dsn, db: db}, nil
}

func (s *SQLiteApprovalStore) Create(ctx context.Context, rec ApprovalRecord) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = rec.CreatedAt.Add(defaultApprovalTTL)
	}
	rec.Status = ApprovalPending

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = "apr_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO command_approvals (
  id, session_id, turn_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  canonical, command_hash, command_redacted, cwd
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, strings.TrimSpace(rec.SessionID), strings.TrimSpace(rec.TurnID),
		rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(), nullTimeUnix(rec.ResolvedAt),
		string(rec.Status), strings.TrimSpace(rec.Actor), strings.TrimSpace(rec.Comment),
		rec.Canonical, rec.CommandHash, rec.CommandRedacted, rec.Cwd,
	)
	if err != nil {
		return "", fmt.Errorf("create approval: %w", err)
	}
	return id, nil
}

// Get returns the record with id. Pending records past their expiry are
// reported as expired.
func (s *SQLiteApprovalStore) Get(ctx context.Context, id string) (ApprovalRecord, bool, error) {
	db, err := s.conn()
	if err != nil {
		return ApprovalRecord{}, false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ApprovalRecord{}, false, nil
	}

	var (
		rec            ApprovalRecord
		createdAtUnix  int64
		expiresAtUnix  int64
		resolvedAtUnix sql.NullInt64
		status         string
	)
	err = db.QueryRowContext(ctx, `
SELECT
  id, session_id, turn_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  canonical, command_hash, command_redacted, cwd
FROM command_approvals
WHERE id = ?
`, id).Scan(
		&rec.ID, &rec.SessionID, &rec.TurnID, &createdAtUnix, &expiresAtUnix, &resolvedAtUnix,
		&status, &rec.Actor, &rec.Comment,
		&rec.Canonical, &rec.CommandHash, &rec.CommandRedacted, &rec.Cwd,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ApprovalRecord{}, false, nil
	}
	if err != nil {
		return ApprovalRecord{}, false, err
	}

	rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAtUnix, 0).UTC()
	if resolvedAtUnix.Valid {
		t := time.Unix(resolvedAtUnix.Int64, 0).UTC()
		rec.ResolvedAt = &t
	}
	rec.Status = ApprovalStatus(status)
	if rec.Status == ApprovalPending && time.Now().After(rec.ExpiresAt) {
		rec.Status = ApprovalExpired
	}
	return rec, true, nil
}

// Resolve moves a pending, unexpired record to approved or denied. Resolving
// anything else returns ErrApprovalNotPending.
func (s *SQLiteApprovalStore) Resolve(ctx context.Context, id string, status ApprovalStatus, actor string, comment string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("missing approval id")
	}

	switch status {
	case ApprovalApproved, ApprovalDenied:
	default:
		return fmt.Errorf("invalid approval status: %q", status)
	}

	now := time.Now().UTC().Unix()
	res, err := db.ExecContext(ctx, `
UPDATE command_approvals
SET status = ?, actor = ?, comment = ?, resolved_at_unix = ?
WHERE id = ? AND status = ? AND expires_at_unix >= ?
`, string(status), strings.TrimSpace(actor), strings.TrimSpace(comment), now, id, string(ApprovalPending), now)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrApprovalNotPending, id)
	}
	return nil
}

func (s *SQLiteApprovalStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const approvalsSchema = `
CREATE TABLE IF NOT EXISTS command_approvals (
  id TEXT PRIMARY KEY,
  session_id TEXT,
  turn_id TEXT,
  created_at_unix INTEGER NOT NULL,
  expires_at_unix INTEGER NOT NULL,
  resolved_at_unix INTEGER,
  status TEXT NOT NULL,
  actor TEXT,
  comment TEXT,
  canonical TEXT,
  command_hash TEXT,
  command_redacted TEXT,
  cwd TEXT
);
CREATE INDEX IF NOT EXISTS idx_command_approvals_status ON command_approvals(status);
CREATE INDEX IF NOT EXISTS idx_command_approvals_turn ON command_approvals(turn_id);
`

func (s *SQLiteApprovalStore) conn() (*sql.DB, error) {
	if s == nil {
		return nil, fmt.Errorf("nil approval store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrApprovalStoreClosed
	}
	return s.db, nil
}

func nullTimeUnix(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Unix()
}
