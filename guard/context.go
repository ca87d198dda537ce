package guard

import "context"

type ctxKeyTurn struct{}

// Turn identifies one propose/validate/confirm/execute cycle of a session.
type Turn struct {
	SessionID string
	TurnID    string
}

func WithTurn(ctx context.Context, t Turn) context.Context {
	return context.WithValue(ctx, ctxKeyTurn{}, t)
}

func TurnFromContext(ctx context.Context) (Turn, bool) {
	if ctx == nil {
		return Turn{}, false
	}
	v := ctx.Value(ctxKeyTurn{})
	t, ok := v.(Turn)
	return t, ok
}
