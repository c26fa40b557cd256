//go:build !linux && !darwin && !windows

package resource

import (
	"os"
	"time"
)

func osIdleDuration() time.Duration { return 0 }

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

func isScreenLocked() bool { return false }

func readBattery() BatteryState { return onMains }
