package resource

import (
	"math"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// cpuSensorHints are substrings of sensor keys that belong to the CPU
// package or its cores, across hwmon, SMC and ACPI naming.
var cpuSensorHints = []string{"coretemp", "k10temp", "x86_pkg", "cpu", "core", "package", "tctl", "tdie", "tc0p"}

// ThermalMonitor reads CPU temperature through gopsutil.
type ThermalMonitor struct {
	read func() ([]host.TemperatureStat, error)
}

// NewThermalMonitor creates a monitor backed by host.SensorsTemperatures.
func NewThermalMonitor() *ThermalMonitor {
	return &ThermalMonitor{read: host.SensorsTemperatures}
}

// CPUTemp returns the hottest CPU sensor in Celsius, 0 when none is readable.
func (t *ThermalMonitor) CPUTemp() int {
	// gopsutil returns partial readings alongside a warnings error.
	temps, _ := t.read()
	return hottestCPU(temps)
}

// hottestCPU picks the maximum plausible CPU reading. When no key looks
// like a CPU sensor it falls back to the hottest sensor overall.
func hottestCPU(temps []host.TemperatureStat) int {
	var cpu, hottest float64
	for _, s := range temps {
		if s.Temperature <= 0 || s.Temperature > 150 {
			continue
		}
		hottest = math.Max(hottest, s.Temperature)
		if isCPUSensor(s.SensorKey) {
			cpu = math.Max(cpu, s.Temperature)
		}
	}
	if cpu == 0 {
		cpu = hottest
	}
	return int(math.Round(cpu))
}

func isCPUSensor(key string) bool {
	key = strings.ToLower(key)
	for _, h := range cpuSensorHints {
		if strings.Contains(key, h) {
			return true
		}
	}
	return false
}
