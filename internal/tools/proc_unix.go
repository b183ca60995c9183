//go:build unix

package tools

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the tool in its own process group so a timeout
// kills the shell and everything it started.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
