//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the helper in its own process group so terminal
// signals aimed at the daemon leave it alone.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
