// Package pathutil resolves the user-facing paths in configuration.
package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// stateDirName holds config, audit log and database under the home
// directory.
const stateDirName = ".cmdbridge"

// ExpandHomePath expands a leading "~" or "~/" (and "~\" on Windows) and
// cleans the result. "~user" forms are left alone.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	rest, ok := homeRelative(p)
	if !ok {
		return filepath.Clean(p)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(home, rest)
}

func homeRelative(p string) (string, bool) {
	switch {
	case p == "~":
		return "", true
	case strings.HasPrefix(p, "~/"):
		return p[2:], true
	case filepath.Separator == '\\' && strings.HasPrefix(p, `~\`):
		return p[2:], true
	}
	return "", false
}

// StateFile returns name inside ~/.cmdbridge.
func StateFile(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(home) == "" {
		return "", errors.New("no home directory")
	}
	return filepath.Join(home, stateDirName, name), nil
}

// EnsureParentDir creates the directory holding p, private to the user.
func EnsureParentDir(p string) error {
	dir := filepath.Dir(p)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}
