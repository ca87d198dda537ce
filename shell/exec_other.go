//go:build !unix && !windows

package shell

import "os/exec"

// processTree falls back to the exec package default of killing the shell
// process itself; these platforms have no group or job primitive wired here.
type processTree struct {
	cmd *exec.Cmd
}

func newProcessTree(cmd *exec.Cmd) (*processTree, error) {
	return &processTree{cmd: cmd}, nil
}

func (t *processTree) attach() error { return nil }

func (t *processTree) kill() error {
	if t.cmd.Process == nil {
		return nil
	}
	return t.cmd.Process.Kill()
}

func (t *processTree) release() {}
