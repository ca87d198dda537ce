package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/quailyquaily/cmdbridge/agent"
	"github.com/quailyquaily/cmdbridge/internal/clifmt"
)

func printOutcome(w io.Writer, o agent.Outcome) {
	if r := o.Result; r != nil {
		if s := strings.TrimRight(r.Stdout, "\r\n"); s != "" {
			fmt.Fprintln(w, s)
		}
		if s := strings.TrimRight(r.Stderr, "\r\n"); s != "" {
			fmt.Fprintln(w, clifmt.Warn(s))
		}
		if r.Truncated {
			fmt.Fprintln(w, clifmt.Dim("(output truncated)"))
		}
	}

	msg := o.Message()
	switch {
	case o.Status == agent.StatusExecuted && o.Result != nil && o.Result.Succeeded() && !o.Result.ConfinementViolation:
		fmt.Fprintln(w, clifmt.Dim(msg))
	case o.Status == agent.StatusDenied:
		fmt.Fprintln(w, clifmt.Warn(msg))
	default:
		fmt.Fprintln(w, clifmt.Fail(msg))
	}
}

// exitCodeFor maps an outcome onto the process exit status of the one-shot
// commands.
func exitCodeFor(o agent.Outcome) int {
	switch o.Status {
	case agent.StatusRejected:
		return 2
	case agent.StatusDenied:
		return 3
	case agent.StatusTimedOut:
		return 124
	case agent.StatusSpawnFailed:
		return 127
	}
	if o.Result == nil || o.Result.ExitCode == nil {
		return 1
	}
	if code := *o.Result.ExitCode; code >= 0 {
		if o.Result.ConfinementViolation && code == 0 {
			return 1
		}
		return code
	}
	return 1
}
