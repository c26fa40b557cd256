//go:build darwin

package resource

import "os/exec"

func readBattery() BatteryState {
	out, err := exec.Command("pmset", "-g", "batt").Output()
	if err != nil {
		return onMains
	}
	return parsePmset(string(out))
}
