//go:build windows

package resource

import "os/exec"

const batteryQuery = `Get-CimInstance Win32_Battery | Select-Object -First 1 | ForEach-Object { "$($_.EstimatedChargeRemaining) $($_.BatteryStatus)" }`

func readBattery() BatteryState {
	out, err := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", batteryQuery).Output()
	if err != nil {
		return onMains
	}
	return parseWin32Battery(string(out))
}
