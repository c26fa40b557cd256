package resource

import (
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
)

func TestHottestCPU(t *testing.T) {
	tests := []struct {
		name  string
		temps []host.TemperatureStat
		want  int
	}{
		{"none", nil, 0},
		{"prefers cpu keys", []host.TemperatureStat{
			{SensorKey: "nvme_composite", Temperature: 70},
			{SensorKey: "coretemp_core_0", Temperature: 55.4},
			{SensorKey: "coretemp_package_id_0", Temperature: 61.6},
		}, 62},
		{"falls back to hottest", []host.TemperatureStat{
			{SensorKey: "acpitz", Temperature: 48},
			{SensorKey: "pch_cannonlake", Temperature: 52},
		}, 52},
		{"ignores implausible", []host.TemperatureStat{
			{SensorKey: "k10temp_tctl", Temperature: 255},
			{SensorKey: "k10temp_tdie", Temperature: 66},
			{SensorKey: "cpu_thermal", Temperature: -1},
		}, 66},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hottestCPU(tt.temps))
		})
	}
}

func TestThermalMonitor_PartialReadings(t *testing.T) {
	m := &ThermalMonitor{read: func() ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{{SensorKey: "x86_pkg_temp", Temperature: 80}}, errors.New("warnings: 1 sensor failed")
	}}
	assert.Equal(t, 80, m.CPUTemp())
}

func TestParseSysfsBattery(t *testing.T) {
	assert.Equal(t, BatteryState{Present: true, Percent: 42, Charging: false}, parseSysfsBattery("42\n", "Discharging\n"))
	assert.Equal(t, BatteryState{Present: true, Percent: 100, Charging: true}, parseSysfsBattery("100\n", "Full\n"))
	assert.Equal(t, onMains, parseSysfsBattery("", ""))
}

func TestParsePmset(t *testing.T) {
	out := "Now drawing from 'Battery Power'\n -InternalBattery-0 (id=4653155)\t84%; discharging; 4:12 remaining present: true\n"
	assert.Equal(t, BatteryState{Present: true, Percent: 84, Charging: false}, parsePmset(out))

	out = "Now drawing from 'AC Power'\n -InternalBattery-0 (id=4653155)\t97%; charging; 0:20 remaining present: true\n"
	assert.Equal(t, BatteryState{Present: true, Percent: 97, Charging: true}, parsePmset(out))

	assert.Equal(t, onMains, parsePmset("Now drawing from 'AC Power'\n"))
}

func TestParseWin32Battery(t *testing.T) {
	assert.Equal(t, BatteryState{Present: true, Percent: 15, Charging: false}, parseWin32Battery("15 1\r\n"))
	assert.Equal(t, BatteryState{Present: true, Percent: 90, Charging: true}, parseWin32Battery("90 2"))
	assert.Equal(t, onMains, parseWin32Battery(""))
}

func TestParseLockedHint(t *testing.T) {
	assert.True(t, parseLockedHint("LockedHint=yes\n"))
	assert.False(t, parseLockedHint("LockedHint=no\n"))
}

func TestParseHIDIdleTime(t *testing.T) {
	out := `+-o IOHIDSystem  <class IOHIDSystem, id 0x100000, registered>
    {
      "HIDIdleTime" = 5250000000
    }`
	assert.Equal(t, 5250*time.Millisecond, parseHIDIdleTime(out))
	assert.Zero(t, parseHIDIdleTime("no counter"))
}

func TestParseIORegLocked(t *testing.T) {
	assert.True(t, parseIORegLocked(`"IOConsoleUsers" = ({"CGSSessionScreenIsLocked"=Yes,"kCGSSessionOnConsoleKey"=Yes})`))
	assert.False(t, parseIORegLocked(`"IOConsoleUsers" = ({"kCGSSessionOnConsoleKey"=Yes})`))
}
