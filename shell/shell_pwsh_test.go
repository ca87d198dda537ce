package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quailyquaily/cmdbridge/guard"
	"github.com/quailyquaily/cmdbridge/policy"
	"github.com/quailyquaily/cmdbridge/session"
)

func pwshFixture(t *testing.T, mutate func(*policy.Spec)) fixture {
	t.Helper()
	sh, err := Locate("pwsh")
	if err != nil {
		t.Skipf("pwsh not available: %v", err)
	}
	sess, err := session.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	spec := policy.Default(sess.Root())
	if mutate != nil {
		mutate(&spec)
	}
	pol, err := policy.New(spec)
	if err != nil {
		t.Fatal(err)
	}
	return fixture{pol: pol, sess: sess, exec: New(sh)}
}

func TestPowerShell_GetChildItem(t *testing.T) {
	f := pwshFixture(t, nil)
	touch(t, filepath.Join(f.sess.Root(), "a.txt"))
	touch(t, filepath.Join(f.sess.Root(), "b.txt"))

	for _, raw := range []string{"Get-ChildItem", "ls"} {
		res, err := f.run(t, context.Background(), raw)
		if err != nil {
			t.Fatalf("Run(%q): %v", raw, err)
		}
		if !res.Succeeded() {
			t.Fatalf("Run(%q): %+v", raw, res)
		}
		if !strings.Contains(res.Stdout, "a.txt") || !strings.Contains(res.Stdout, "b.txt") {
			t.Fatalf("Run(%q) stdout=%q", raw, res.Stdout)
		}
	}
}

func TestPowerShell_SetLocation(t *testing.T) {
	f := pwshFixture(t, nil)
	sub := filepath.Join(f.sess.Root(), "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := f.run(t, context.Background(), "Set-Location sub")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ConfinementViolation || f.sess.Current() != sub {
		t.Fatalf("session=%q violation=%q", f.sess.Current(), res.Violation)
	}
	if strings.TrimSpace(res.Stdout) != "" {
		t.Fatalf("location query leaked into stdout: %q", res.Stdout)
	}

	if _, err := guard.Validate("Set-Location ../../etc", f.pol, f.sess); err == nil {
		t.Fatal("expected ../../etc from a subdirectory to be rejected")
	}
	if _, err := f.run(t, context.Background(), "cd .."); err != nil {
		t.Fatalf("Run(cd ..): %v", err)
	}
	if f.sess.Current() != f.sess.Root() {
		t.Fatalf("session=%q, want root", f.sess.Current())
	}
}

func TestPowerShell_Timeout(t *testing.T) {
	f := pwshFixture(t, func(s *policy.Spec) {
		s.TimeoutSeconds = 2
		s.AllowedCommands = append(s.AllowedCommands, "Start-Sleep")
	})
	res, err := f.run(t, context.Background(), "Start-Sleep -Seconds 40")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut || res.ExitCode != nil {
		t.Fatalf("expected timeout, got %+v", res)
	}
}
