package agent

import (
	"context"
	"fmt"
)

// Resume restores the session directory saved under the engine's session
// id. It reports false when there is nothing to resume.
func (e *Engine) Resume(ctx context.Context) (bool, error) {
	if e == nil || e.history == nil {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok, err := e.history.LoadSnapshot(ctx, e.sessionID)
	if err != nil {
		return false, fmt.Errorf("load session snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := e.sess.Restore(snap); err != nil {
		return false, fmt.Errorf("resume session %s: %w", e.sessionID, err)
	}
	e.log.Info("session_resumed", "cwd", e.sess.Current())
	return true, nil
}
