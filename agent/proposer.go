package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Proposal is one candidate command, or None when the proposer has nothing
// more to run.
type Proposal struct {
	Command string
	None    bool
}

// Proposer supplies candidate commands. last is the feedback from the
// previous turn and is nil on the first call.
type Proposer interface {
	Propose(ctx context.Context, last *Feedback) (Proposal, error)
}

// LineProposer reads one candidate per line. Blank lines are skipped; EOF,
// "exit" and "quit" end the session.
type LineProposer struct {
	Lines *LineReader

	// Prompt, when set, is written before each read.
	Prompt func(last *Feedback) string
	Out    io.Writer
}

func (p *LineProposer) Propose(ctx context.Context, last *Feedback) (Proposal, error) {
	for {
		if p.Prompt != nil && p.Out != nil {
			_, _ = io.WriteString(p.Out, p.Prompt(last))
		}
		line, err := p.Lines.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return Proposal{None: true}, nil
		}
		if err != nil {
			return Proposal{}, fmt.Errorf("read command: %w", err)
		}
		cmd := strings.TrimRight(line, "\r")
		switch strings.TrimSpace(cmd) {
		case "":
			continue
		case "exit", "quit":
			return Proposal{None: true}, nil
		}
		return Proposal{Command: cmd}, nil
	}
}

// StaticProposer replays a fixed list of commands.
type StaticProposer struct {
	Commands []string
	next     int
}

func (p *StaticProposer) Propose(ctx context.Context, _ *Feedback) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	if p.next >= len(p.Commands) {
		return Proposal{None: true}, nil
	}
	cmd := p.Commands[p.next]
	p.next++
	return Proposal{Command: cmd}, nil
}
