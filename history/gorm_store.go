package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/cmdbridge/db/models"
	"github.com/quailyquaily/cmdbridge/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Record(ctx context.Context, e Entry) error {
	if s == nil || s.DB == nil {
		return nil
	}
	if strings.TrimSpace(e.TurnID) == "" {
		return fmt.Errorf("history: missing turn id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	row := entryToModel(e)
	return s.DB.WithContext(ctx).Create(&row).Error
}

// List returns the newest entries first.
func (s *GormStore) List(ctx context.Context, opt ListOptions) ([]Entry, error) {
	if s == nil || s.DB == nil {
		return nil, nil
	}
	limit := opt.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := s.DB.WithContext(ctx).Model(&models.ExecutionRecord{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if id := strings.TrimSpace(opt.SessionID); id != "" {
		q = q.Where("session_id = ?", id)
	}

	var rows []models.ExecutionRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, modelToEntry(r))
	}
	return out, nil
}

func (s *GormStore) SaveSnapshot(ctx context.Context, sessionID string, snap session.Snapshot) error {
	if s == nil || s.DB == nil {
		return nil
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("history: missing session id")
	}
	row := models.SessionSnapshot{
		SessionID: sessionID,
		Root:      snap.Root,
		Current:   snap.Current,
		UpdatedAt: time.Now().UnixMilli(),
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"root", "current_dir", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *GormStore) LoadSnapshot(ctx context.Context, sessionID string) (session.Snapshot, bool, error) {
	if s == nil || s.DB == nil {
		return session.Snapshot{}, false, nil
	}
	var row models.SessionSnapshot
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Snapshot{}, false, nil
	}
	if err != nil {
		return session.Snapshot{}, false, err
	}
	return session.Snapshot{Root: row.Root, Current: row.Current}, true, nil
}

func entryToModel(e Entry) models.ExecutionRecord {
	return models.ExecutionRecord{
		SessionID:            e.SessionID,
		TurnID:               e.TurnID,
		Command:              e.Command,
		Canonical:            e.Canonical,
		Status:               e.Status,
		ReasonCode:           e.ReasonCode,
		Detail:               e.Detail,
		ExitCode:             e.ExitCode,
		TimedOut:             e.TimedOut,
		ConfinementViolation: e.ConfinementViolation,
		Truncated:            e.Truncated,
		Stdout:               e.Stdout,
		Stderr:               e.Stderr,
		CwdBefore:            e.CwdBefore,
		CwdAfter:             e.CwdAfter,
		DurationMs:           e.Duration.Milliseconds(),
		CreatedAt:            e.CreatedAt.UnixMilli(),
	}
}

func modelToEntry(r models.ExecutionRecord) Entry {
	return Entry{
		SessionID:            r.SessionID,
		TurnID:               r.TurnID,
		Command:              r.Command,
		Canonical:            r.Canonical,
		Status:               r.Status,
		ReasonCode:           r.ReasonCode,
		Detail:               r.Detail,
		ExitCode:             r.ExitCode,
		TimedOut:             r.TimedOut,
		ConfinementViolation: r.ConfinementViolation,
		Truncated:            r.Truncated,
		Stdout:               r.Stdout,
		Stderr:               r.Stderr,
		CwdBefore:            r.CwdBefore,
		CwdAfter:             r.CwdAfter,
		Duration:             time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt:            time.UnixMilli(r.CreatedAt),
	}
}
