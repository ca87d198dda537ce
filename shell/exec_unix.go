//go:build unix

package shell

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// processTree is the shell's process group. The shell leads its own group so
// a kill reaches every descendant together with it.
type processTree struct {
	cmd *exec.Cmd
}

func newProcessTree(cmd *exec.Cmd) (*processTree, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return &processTree{cmd: cmd}, nil
}

// attach is a no-op: group membership is fixed at fork time.
func (t *processTree) attach() error { return nil }

func (t *processTree) kill() error {
	if t.cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-t.cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func (t *processTree) release() {}
