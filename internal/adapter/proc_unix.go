//go:build unix

package adapter

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// ConfigureProcessGroup starts cmd in its own process group and makes
// context cancellation kill the whole group, so helpers spawned by the
// tool do not outlive it.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

const waitDelay = 2 * time.Second
