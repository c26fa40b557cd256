package platform

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps desktop tools from flashing a console window.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
