package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quailyquaily/cmdbridge/internal/pathutil"
)

const defaultRotateMaxBytes = 16 * 1024 * 1024

var ErrSinkClosed = errors.New("audit sink is closed")

// JSONLAuditSink appends one JSON object per line. Once the file would
// grow past RotateMaxBytes it is renamed with a UTC timestamp inserted
// before the extension (guard_audit.20261019T101500.000000000Z.jsonl) and a
// fresh file is started.
type JSONLAuditSink struct {
	Path           string
	RotateMaxBytes int64

	mu   sync.Mutex
	f    *os.File
	size int64
}

func NewJSONLAuditSink(path string, rotateMaxBytes int64) (*JSONLAuditSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing audit jsonl path")
	}
	if rotateMaxBytes <= 0 {
		rotateMaxBytes = defaultRotateMaxBytes
	}
	s := &JSONLAuditSink{Path: path, RotateMaxBytes: rotateMaxBytes}
	if err := s.open(); err != nil {
		return nil, fmt.Errorf("open audit sink: %w", err)
	}
	return s, nil
}

func (s *JSONLAuditSink) Emit(ctx context.Context, e AuditEvent) error {
	if s == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("%w: %s", ErrSinkClosed, s.Path)
	}
	// An empty file is never rotated, so one oversized event still gets a
	// file of its own.
	if s.size > 0 && s.size+int64(len(line)) > s.RotateMaxBytes {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	n, err := s.f.Write(line)
	s.size += int64(n)
	return err
}

func (s *JSONLAuditSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.size = 0
	return err
}

func (s *JSONLAuditSink) open() error {
	if err := pathutil.EnsureParentDir(s.Path); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	s.f = f
	s.size = 0
	if st, err := f.Stat(); err == nil {
		s.size = st.Size()
	}
	return nil
}

// rotate keeps writing to the current file when the rename fails.
func (s *JSONLAuditSink) rotate() error {
	if err := s.f.Close(); err != nil {
		return err
	}
	s.f = nil
	_ = os.Rename(s.Path, rotatedName(s.Path, time.Now()))
	return s.open()
}

func rotatedName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "." + now.UTC().Format("20060102T150405.000000000Z") + ext
}
