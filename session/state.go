// Package session tracks the working directory of one agent session.
//
// Every command runs in a fresh process, so the directory has to be carried
// from one turn to the next here. The directory never leaves the root the
// session was created with.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("path is outside the session root")

// State is owned by a single session; it is not safe for concurrent use.
type State struct {
	root    string
	current string
}

// New creates a session rooted at root. The root must exist and be a
// directory; it is made absolute and resolved through symlinks so that later
// containment checks compare physical paths.
func New(root string) (*State, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("session root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("session root: %w", err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("session root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("session root %q is not a directory", root)
	}
	return &State{root: resolved, current: resolved}, nil
}

func (s *State) Root() string { return s.root }

func (s *State) Current() string { return s.current }

// Resolve joins target onto the current directory without touching the
// filesystem. Absolute targets are only cleaned.
func (s *State) Resolve(target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(s.current, target)
}

// Contains reports whether p is the root or lies beneath it, lexically.
func (s *State) Contains(p string) bool {
	return within(s.root, filepath.Clean(p))
}

// Move sets the current directory to dir after confirming it stays inside
// the root. dir is resolved through symlinks first, so a link inside the root
// that points elsewhere is refused. On error the state is unchanged.
func (s *State) Move(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("session move: %q is not absolute", dir)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("session move: %w", err)
	}
	if !within(s.root, resolved) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, resolved)
	}
	s.current = resolved
	return nil
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Root    string `json:"root"`
	Current string `json:"current"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{Root: s.root, Current: s.current}
}

// Restore moves the session to the directory recorded in snap. Snapshots
// taken under a different root are refused.
func (s *State) Restore(snap Snapshot) error {
	if filepath.Clean(snap.Root) != s.root {
		return fmt.Errorf("session restore: snapshot root %q does not match %q", snap.Root, s.root)
	}
	return s.Move(snap.Current)
}

func within(root, p string) bool {
	if p == root {
		return true
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
