package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/shell"
)

type Status string

const (
	StatusRejected    Status = "rejected"
	StatusDenied      Status = "denied"
	StatusExecuted    Status = "executed"
	StatusTimedOut    Status = "timed_out"
	StatusSpawnFailed Status = "spawn_failed"
)

// noOutputNote is what the proposer sees for a successful command that
// printed nothing, so it does not mistake silence for failure.
const noOutputNote = "Command executed successfully, without any output."

// Outcome is the result of one turn.
type Outcome struct {
	TurnID    string
	Status    Status
	Candidate string
	Canonical string

	// Rejection is set when Status is rejected.
	Rejection *guard.Rejection
	// Result is set when the command ran, including timeouts.
	Result *shell.Result
	// Err is the spawn failure when Status is spawn_failed.
	Err error

	ApprovalID string
	Cwd        string
	Timeout    time.Duration
}

// Message is the one-line text shown to the operator.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusRejected:
		if o.Rejection == nil {
			return "Command rejected."
		}
		switch o.Rejection.Code {
		case guard.ReasonEmptyCommand:
			return "No command was provided."
		case guard.ReasonInjectionPattern:
			return "Command rejected: it looked dangerous (" + o.Rejection.Detail + ")."
		case guard.ReasonMalformedSyntax:
			return "Command rejected: it could not be parsed as a single command (" + o.Rejection.Detail + ")."
		case guard.ReasonNotInAllowlist:
			if o.Rejection.Confinement {
				return "Command rejected: it leaves the working area (" + o.Rejection.Detail + ")."
			}
			return "Command rejected: it is not permitted (" + o.Rejection.Detail + ")."
		}
		return "Command rejected: " + o.Rejection.Error()
	case StatusDenied:
		return "Command was not approved and did not run."
	case StatusTimedOut:
		return fmt.Sprintf("Command timed out after %s and was stopped.", o.Timeout)
	case StatusSpawnFailed:
		if o.Err != nil {
			return "Command could not start: " + o.Err.Error()
		}
		return "Command could not start."
	case StatusExecuted:
		if o.Result == nil || o.Result.ExitCode == nil {
			return "Command executed."
		}
		msg := fmt.Sprintf("Command exited with code %d.", *o.Result.ExitCode)
		if o.Result.ConfinementViolation {
			msg += " The directory change was refused: " + o.Result.Violation
		}
		return msg
	}
	return string(o.Status)
}

// Feedback is the record handed back to the proposer after each turn.
type Feedback struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Cwd    string `json:"cwd"`
	Error  string `json:"error,omitempty"`
}

func (f Feedback) JSON() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// Feedback reduces the outcome to what the proposer gets to see.
func (o Outcome) Feedback() Feedback {
	fb := Feedback{Cwd: o.Cwd}
	if o.Result != nil {
		fb.Stdout = o.Result.Stdout
		fb.Stderr = o.Result.Stderr
		if o.Result.WorkingDirectoryAfter != "" {
			fb.Cwd = o.Result.WorkingDirectoryAfter
		}
	}
	switch o.Status {
	case StatusExecuted:
		if o.Result != nil && o.Result.ConfinementViolation {
			fb.Error = o.Message()
		} else if o.Result != nil && o.Result.Succeeded() && fb.Stdout == "" && fb.Stderr == "" {
			fb.Stdout = noOutputNote
		}
	default:
		fb.Error = o.Message()
	}
	return fb
}

func outcomeStatus(res shell.Result) Status {
	if res.TimedOut {
		return StatusTimedOut
	}
	return StatusExecuted
}

func asSpawnError(err error) (*shell.SpawnError, bool) {
	var se *shell.SpawnError
	ok := errors.As(err, &se)
	return se, ok
}
