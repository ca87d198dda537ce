package session

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newState(t *testing.T) *State {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_StartsAtRoot(t *testing.T) {
	s := newState(t)
	if s.Current() != s.Root() {
		t.Fatalf("current=%q root=%q", s.Current(), s.Root())
	}
}

func TestNew_RejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f); err == nil {
		t.Fatal("expected error for non-directory root")
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestResolveAndContains(t *testing.T) {
	s := newState(t)
	cases := []struct {
		name   string
		target string
		inside bool
	}{
		{name: "dot", target: ".", inside: true},
		{name: "child", target: "sub/dir", inside: true},
		{name: "child_then_up", target: "sub/..", inside: true},
		{name: "parent", target: "..", inside: false},
		{name: "escape", target: "../../etc", inside: false},
		{name: "sneaky", target: "sub/../../x", inside: false},
		{name: "abs_root", target: s.Root(), inside: true},
		{name: "abs_outside", target: filepath.Dir(s.Root()), inside: false},
		{name: "sibling_prefix", target: s.Root() + "-other", inside: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Contains(s.Resolve(tc.target))
			if got != tc.inside {
				t.Fatalf("Contains(Resolve(%q))=%v, want %v", tc.target, got, tc.inside)
			}
		})
	}
}

func TestMove(t *testing.T) {
	s := newState(t)
	sub := filepath.Join(s.Root(), "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(sub); err != nil {
		t.Fatalf("Move(sub): %v", err)
	}
	if s.Current() != sub {
		t.Fatalf("current=%q, want %q", s.Current(), sub)
	}
	if s.Resolve("x") != filepath.Join(sub, "x") {
		t.Fatalf("Resolve should be relative to the new current directory")
	}

	err := s.Move(filepath.Dir(s.Root()))
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
	if s.Current() != sub {
		t.Fatal("failed move changed the current directory")
	}

	if err := s.Move("relative"); err == nil {
		t.Fatal("expected error for relative path")
	}
	if err := s.Move(filepath.Join(s.Root(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestMove_RefusesSymlinkOutOfRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	s := newState(t)
	outside := t.TempDir()
	link := filepath.Join(s.Root(), "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatal(err)
	}
	if !s.Contains(s.Resolve("link")) {
		t.Fatal("lexically the link is inside the root")
	}
	if err := s.Move(link); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
	if s.Current() != s.Root() {
		t.Fatal("current directory changed")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newState(t)
	sub := filepath.Join(s.Root(), "a")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(sub); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()

	other, err := New(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if other.Current() != sub {
		t.Fatalf("current=%q, want %q", other.Current(), sub)
	}

	foreign := newState(t)
	if err := foreign.Restore(snap); err == nil {
		t.Fatal("expected error restoring a snapshot from another root")
	}
}
