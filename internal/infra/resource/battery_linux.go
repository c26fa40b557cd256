//go:build linux

package resource

import (
	"os"
	"path/filepath"
)

// readBattery reports the first BAT* power_supply device.
func readBattery() BatteryState {
	dirs, _ := filepath.Glob("/sys/class/power_supply/BAT*")
	for _, dir := range dirs {
		capacity, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		status, _ := os.ReadFile(filepath.Join(dir, "status"))
		return parseSysfsBattery(string(capacity), string(status))
	}
	return onMains
}
