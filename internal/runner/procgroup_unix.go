//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup puts the compile.sh child in its own process group and
// overrides cmd.Cancel to kill the entire group on context cancellation.
// This keeps a cancelled build-and-measure run from leaving orphaned
// grandchildren of compile.sh behind. It takes effect only through the
// command's context; if the server process itself is killed, Cancel does
// not run and the group is not killed.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
