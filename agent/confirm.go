package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Request is what the operator sees before a command runs.
type Request struct {
	Command   string
	Canonical string
	Cwd       string
}

// Confirmer is the confirmation surface. Anything other than an explicit
// approval counts as a denial.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

type actor interface {
	Actor() string
}

// PromptConfirmer asks on Out and reads the answer from Lines. Only "y" and
// "yes" (any case) approve.
type PromptConfirmer struct {
	Lines *LineReader
	Out   io.Writer
}

func (c *PromptConfirmer) Confirm(ctx context.Context, req Request) (bool, error) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, "Run %q in %s? [y/N] ", req.Command, req.Cwd)
	}
	line, err := c.Lines.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return IsAffirmative(line), nil
}

func (c *PromptConfirmer) Actor() string { return "operator" }

// IsAffirmative reports whether answer is an explicit yes.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// AutoConfirmer approves everything. It is only wired when confirmation is
// switched off in the configuration.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(ctx context.Context, _ Request) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (AutoConfirmer) Actor() string { return "auto" }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req Request) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, req Request) (bool, error) { return f(ctx, req) }
