//go:build !unix

package adapter

import (
	"os/exec"
	"time"
)

// ConfigureProcessGroup kills the process itself on cancellation. Platforms
// without process groups cannot reach grandchildren.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = 2 * time.Second
}
