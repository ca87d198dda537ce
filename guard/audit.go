package guard

import (
	"context"
	"sync"
)

type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent) error
	Close() error
}

// MemoryAuditSink keeps events in memory. It backs tests and sessions that
// run without an audit file.
type MemoryAuditSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (m *MemoryAuditSink) Emit(_ context.Context, e AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryAuditSink) Events() []AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEvent(nil), m.events...)
}

func (m *MemoryAuditSink) Close() error { return nil }
