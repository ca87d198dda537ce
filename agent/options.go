package agent

import (
	"log/slog"
	"strings"

	"github.com/quailyquaily/cmdbridge/history"
)

type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithConfirmer sets the confirmation surface. Without one, every command
// is denied while the guard requires confirmation.
func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) {
		e.confirmer = c
	}
}

func WithHistory(store history.Store) Option {
	return func(e *Engine) {
		e.history = store
	}
}

func WithSessionID(id string) Option {
	return func(e *Engine) {
		if id = strings.TrimSpace(id); id != "" {
			e.sessionID = id
		}
	}
}

// WithMaxTurns bounds Run. 0 means no limit.
func WithMaxTurns(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxTurns = n
		}
	}
}
