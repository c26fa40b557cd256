package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureProcess detaches the helper from the daemon's console group.
// Helpers are GUI programs, so their window must stay visible.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}
