//go:build darwin

package resource

import (
	"os/exec"
	"time"
)

func osIdleDuration() time.Duration {
	out, err := exec.Command("ioreg", "-c", "IOHIDSystem", "-r", "-k", "HIDIdleTime").Output()
	if err != nil {
		return 0
	}
	return parseHIDIdleTime(string(out))
}

// hasDisplay is true on macOS; a headless Mac still owns a WindowServer.
func hasDisplay() bool { return true }

// isScreenLocked reads the console session dictionary that ioreg
// publishes on the registry root.
func isScreenLocked() bool {
	out, err := exec.Command("ioreg", "-n", "Root", "-d", "1").Output()
	if err != nil {
		return false
	}
	return parseIORegLocked(string(out))
}
