//go:build windows

package shell

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processTree is a job object holding the shell. Children inherit the job,
// so terminating it ends the whole tree, and closing the last handle kills
// anything still running.
type processTree struct {
	cmd *exec.Cmd

	mu   sync.Mutex
	job  windows.Handle
	proc windows.Handle
}

func newProcessTree(cmd *exec.Cmd) (*processTree, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		_ = windows.CloseHandle(job)
		return nil, fmt.Errorf("configure job object: %w", err)
	}
	return &processTree{cmd: cmd, job: job}, nil
}

// attach places the started shell in the job. Processes the shell spawns
// from then on are members too.
func (t *processTree) attach() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE|windows.SYNCHRONIZE,
		false,
		uint32(t.cmd.Process.Pid),
	)
	if err != nil {
		return fmt.Errorf("open shell process: %w", err)
	}
	if err := windows.AssignProcessToJobObject(t.job, h); err != nil {
		_ = windows.CloseHandle(h)
		return fmt.Errorf("assign shell to job object: %w", err)
	}
	t.proc = h
	return nil
}

func (t *processTree) kill() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.proc == 0 {
		if t.cmd.Process == nil {
			return nil
		}
		return t.cmd.Process.Kill()
	}
	event, _ := windows.WaitForSingleObject(t.proc, 0)
	if err := windows.TerminateJobObject(t.job, 1); err != nil {
		return fmt.Errorf("terminate job object: %w", err)
	}
	if event == windows.WAIT_OBJECT_0 {
		return os.ErrProcessDone
	}
	return nil
}

func (t *processTree) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.proc != 0 {
		_ = windows.CloseHandle(t.proc)
		t.proc = 0
	}
	if t.job != 0 {
		_ = windows.CloseHandle(t.job)
		t.job = 0
	}
}
