package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/quailyquaily/cmdbridge/agent"
	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/shell"
	"github.com/spf13/viper"
)

func intPtr(v int) *int { return &v }

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		out  agent.Outcome
		want int
	}{
		{name: "success", out: agent.Outcome{Status: agent.StatusExecuted, Result: &shell.Result{ExitCode: intPtr(0)}}, want: 0},
		{name: "command_exit", out: agent.Outcome{Status: agent.StatusExecuted, Result: &shell.Result{ExitCode: intPtr(4)}}, want: 4},
		{name: "signal", out: agent.Outcome{Status: agent.StatusExecuted, Result: &shell.Result{ExitCode: intPtr(-1)}}, want: 1},
		{name: "violation", out: agent.Outcome{Status: agent.StatusExecuted, Result: &shell.Result{ExitCode: intPtr(0), ConfinementViolation: true}}, want: 1},
		{name: "rejected", out: agent.Outcome{Status: agent.StatusRejected}, want: 2},
		{name: "denied", out: agent.Outcome{Status: agent.StatusDenied}, want: 3},
		{name: "timed_out", out: agent.Outcome{Status: agent.StatusTimedOut, Result: &shell.Result{TimedOut: true}}, want: 124},
		{name: "spawn_failed", out: agent.Outcome{Status: agent.StatusSpawnFailed}, want: 127},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeFor(tc.out); got != tc.want {
				t.Fatalf("exitCodeFor=%d, want %d", got, tc.want)
			}
		})
	}
}

func TestPrintOutcome(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	printOutcome(&buf, agent.Outcome{
		Status: agent.StatusExecuted,
		Result: &shell.Result{ExitCode: intPtr(1), Stdout: "out\n", Stderr: "boom\n", Truncated: true},
	})
	want := "out\nboom\n(output truncated)\nCommand exited with code 1.\n"
	if buf.String() != want {
		t.Fatalf("output=%q, want %q", buf.String(), want)
	}

	buf.Reset()
	printOutcome(&buf, agent.Outcome{
		Status:    agent.StatusRejected,
		Rejection: &guard.Rejection{Code: guard.ReasonInjectionPattern, Detail: `command contains forbidden pattern "pipe"`},
	})
	if !strings.Contains(buf.String(), "looked dangerous") {
		t.Fatalf("output=%q", buf.String())
	}
}

func TestLoggerFromViper(t *testing.T) {
	cases := []struct {
		level, format string
		ok            bool
	}{
		{"", "", true},
		{"debug", "json", true},
		{"WARN", "text", true},
		{"loud", "text", false},
		{"info", "xml", false},
	}
	for _, tc := range cases {
		t.Run(tc.level+"_"+tc.format, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("log.level", tc.level)
			viper.Set("log.format", tc.format)
			var buf bytes.Buffer
			log, err := loggerFromViper(&buf)
			if (err == nil) != tc.ok {
				t.Fatalf("err=%v, want ok=%v", err, tc.ok)
			}
			if err != nil {
				return
			}
			log.Error("command_rejected", "reason", "NotInAllowlist")
			if !strings.Contains(buf.String(), "command_rejected") {
				t.Fatalf("log output=%q", buf.String())
			}
		})
	}
}
