package shell

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type Dialect int

const (
	PowerShell Dialect = iota
	POSIX
)

func (d Dialect) String() string {
	switch d {
	case PowerShell:
		return "powershell"
	case POSIX:
		return "posix"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Shell is a located interpreter binary.
type Shell struct {
	Name    string
	Path    string
	Dialect Dialect
}

var ErrShellNotFound = errors.New("shell interpreter not found")

// Locate finds the interpreter named by name on PATH. "auto" (or "") tries
// pwsh, then Windows PowerShell on Windows, then sh. An absolute path is
// used as is and its base name selects the dialect.
func Locate(name string) (Shell, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "auto") {
		candidates := []string{"pwsh"}
		if runtime.GOOS == "windows" {
			candidates = append(candidates, "powershell")
		}
		candidates = append(candidates, "sh")
		for _, c := range candidates {
			if sh, err := Locate(c); err == nil {
				return sh, nil
			}
		}
		return Shell{}, fmt.Errorf("%w: tried %s", ErrShellNotFound, strings.Join(candidates, ", "))
	}

	d, err := dialectOf(name)
	if err != nil {
		return Shell{}, err
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return Shell{}, fmt.Errorf("%w: %s: %v", ErrShellNotFound, name, err)
	}
	return Shell{Name: baseName(name), Path: path, Dialect: d}, nil
}

func baseName(name string) string {
	base := strings.ToLower(filepath.Base(name))
	return strings.TrimSuffix(base, ".exe")
}

func dialectOf(name string) (Dialect, error) {
	switch baseName(name) {
	case "pwsh", "powershell":
		return PowerShell, nil
	case "sh", "bash", "dash", "zsh", "ksh":
		return POSIX, nil
	}
	return 0, fmt.Errorf("unsupported shell %q (want pwsh, powershell, sh, bash, dash, zsh or ksh)", name)
}

// args returns the argument vector that runs script non-interactively with
// startup files disabled.
func (s Shell) args(script string) []string {
	switch s.Dialect {
	case PowerShell:
		return []string{"-NoProfile", "-NonInteractive", "-NoLogo", "-Command", script}
	default:
		switch s.Name {
		case "bash":
			return []string{"--noprofile", "--norc", "-c", script}
		case "zsh":
			return []string{"-f", "-c", script}
		}
		return []string{"-c", script}
	}
}

// withLocationQuery appends a marker line and the physical working directory
// to the command's output while keeping its exit status.
func (s Shell) withLocationQuery(command, marker string) string {
	switch s.Dialect {
	case PowerShell:
		return command + "\n" +
			"$__cbOk = $?; Write-Output '" + marker + "'; (Get-Location).ProviderPath; if (-not $__cbOk) { exit 1 }"
	default:
		return command + "\n" +
			"__cb_rc=$?; printf '\\n%s\\n' '" + marker + "'; pwd -P; exit $__cb_rc"
	}
}
