package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "  ", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde_slash", in: "~/a/b", want: filepath.Join(home, "a", "b")},
		{name: "other_user", in: "~bob/x", want: filepath.Clean("~bob/x")},
		{name: "relative", in: "a/../b", want: "b"},
		{name: "absolute", in: "/var//log/", want: filepath.Clean("/var/log")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpandHomePath(tc.in); got != tc.want {
				t.Fatalf("ExpandHomePath(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStateFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	got, err := StateFile("guard_audit.jsonl")
	if err != nil {
		t.Fatalf("StateFile: %v", err)
	}
	if want := filepath.Join(home, ".cmdbridge", "guard_audit.jsonl"); got != want {
		t.Fatalf("StateFile=%q, want %q", got, want)
	}
}

func TestEnsureParentDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "file.db")
	if err := EnsureParentDir(p); err != nil {
		t.Fatalf("EnsureParentDir: %v", err)
	}
	fi, err := os.Stat(filepath.Dir(p))
	if err != nil || !fi.IsDir() {
		t.Fatalf("parent not created: %v", err)
	}
	if err := EnsureParentDir("relative.db"); err != nil {
		t.Fatalf("EnsureParentDir(relative): %v", err)
	}
}
