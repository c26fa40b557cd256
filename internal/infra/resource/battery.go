package resource

import (
	"regexp"
	"strconv"
	"strings"
)

// BatteryState is one battery reading. A machine without a battery reads
// as not present, full and charging so the governor never throttles it.
type BatteryState struct {
	Present  bool
	Percent  int
	Charging bool
}

var onMains = BatteryState{Present: false, Percent: 100, Charging: true}

// BatteryMonitor reads the host battery through readBattery.
type BatteryMonitor struct {
	read func() BatteryState
}

// NewBatteryMonitor creates a monitor for the current OS.
func NewBatteryMonitor() *BatteryMonitor {
	return &BatteryMonitor{read: readBattery}
}

// State returns the current reading.
func (b *BatteryMonitor) State() BatteryState {
	return b.read()
}

// parseSysfsBattery reads the capacity and status attributes of a
// power_supply device.
func parseSysfsBattery(capacity, status string) BatteryState {
	pct, err := strconv.Atoi(strings.TrimSpace(capacity))
	if err != nil {
		return onMains
	}
	st := strings.TrimSpace(status)
	return BatteryState{
		Present:  true,
		Percent:  clampPercent(pct),
		Charging: st != "Discharging",
	}
}

var pmsetLine = regexp.MustCompile(`(\d+)%;\s*([a-zA-Z ]+);`)

// parsePmset reads `pmset -g batt` output, e.g.
//
//	-InternalBattery-0 (id=123)	84%; discharging; 4:12 remaining present: true
func parsePmset(out string) BatteryState {
	if !strings.Contains(out, "InternalBattery") {
		return onMains
	}
	m := pmsetLine.FindStringSubmatch(out)
	if m == nil {
		return onMains
	}
	pct, _ := strconv.Atoi(m[1])
	return BatteryState{
		Present:  true,
		Percent:  clampPercent(pct),
		Charging: strings.TrimSpace(m[2]) != "discharging",
	}
}

// parseWin32Battery reads "EstimatedChargeRemaining BatteryStatus" as
// printed by the CIM query. BatteryStatus 1 is discharging.
func parseWin32Battery(out string) BatteryState {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return onMains
	}
	pct, err := strconv.Atoi(fields[0])
	if err != nil {
		return onMains
	}
	return BatteryState{
		Present:  true,
		Percent:  clampPercent(pct),
		Charging: fields[1] != "1",
	}
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
