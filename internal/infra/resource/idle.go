// Package resource accounts for what wallpaper helpers consume and watches
// the host (idle, lock, battery, temperature) so playback can back off.
package resource

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

// Idle thresholds between the active, light and deep levels.
const (
	LightIdleAfter = 3 * time.Minute
	DeepIdleAfter  = 15 * time.Minute
)

// idleProbe is the per-OS reading behind an IdleDetector.
type idleProbe struct {
	display func() bool
	locked  func() bool
	idle    func() time.Duration
}

var hostProbe = idleProbe{display: hasDisplay, locked: isScreenLocked, idle: osIdleDuration}

// IdleDetector classifies user activity from the last Update.
type IdleDetector struct {
	probe idleProbe

	mu    sync.RWMutex
	level domain.IdleLevel
}

// NewIdleDetector creates a detector for this host. It reads as active
// until the first Update.
func NewIdleDetector() *IdleDetector {
	return &IdleDetector{probe: hostProbe, level: domain.IdleActive}
}

// Level returns the classification from the last Update.
func (d *IdleDetector) Level() domain.IdleLevel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.level
}

// Update reads the host and stores the new level. Without a display
// the host is a server and never idles.
func (d *IdleDetector) Update() domain.IdleLevel {
	level := domain.IdleServer
	if d.probe.display() {
		level = classifyIdle(d.probe.locked(), d.probe.idle())
	}
	d.mu.Lock()
	d.level = level
	d.mu.Unlock()
	return level
}

func classifyIdle(locked bool, idle time.Duration) domain.IdleLevel {
	switch {
	case locked:
		return domain.IdleLocked
	case idle < LightIdleAfter:
		return domain.IdleActive
	case idle > DeepIdleAfter:
		return domain.IdleDeep
	default:
		return domain.IdleLight
	}
}

// parseLockedHint reads `loginctl show-session -p LockedHint`.
func parseLockedHint(out string) bool {
	return strings.TrimSpace(out) == "LockedHint=yes"
}

var hidIdleTime = regexp.MustCompile(`"HIDIdleTime"\s*=\s*(\d+)`)

// parseHIDIdleTime extracts the IOHIDSystem idle counter, in nanoseconds.
func parseHIDIdleTime(out string) time.Duration {
	m := hidIdleTime.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	ns, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(ns)
}

// parseIORegLocked looks for CGSSessionScreenIsLocked=Yes in the
// IOConsoleUsers session dictionary.
func parseIORegLocked(out string) bool {
	return strings.Contains(out, `"CGSSessionScreenIsLocked"=Yes`)
}
