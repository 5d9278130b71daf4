//go:build unix

package probe

import (
	"os/exec"
	"syscall"
)

// killProcessGroup makes cancellation take down the shell and everything it
// started, not only the shell itself.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
