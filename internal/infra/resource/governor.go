package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
)

// GovernorConfig controls when the governor asks for playback to pause.
type GovernorConfig struct {
	PauseOnLock   bool          // Pause while the session is locked
	BatteryMinPct int           // Pause on battery below this charge (0 disables)
	ThermalPauseC int           // Pause above this CPU temperature (0 disables)
	TickInterval  time.Duration // Sensor poll period
}

// DefaultGovernorConfig returns safe defaults.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		PauseOnLock:   true,
		BatteryMinPct: 20,
		ThermalPauseC: 90,
		TickInterval:  5 * time.Second,
	}
}

// Sensors is what the governor reads each tick.
type Sensors interface {
	IdleLevel() domain.IdleLevel
	CPUTemp() int
	Battery() BatteryState
}

// HostSensors reads the local machine through the platform monitors.
type HostSensors struct {
	idle    *IdleDetector
	thermal *ThermalMonitor
	battery *BatteryMonitor
}

// NewHostSensors creates sensors for the current OS.
func NewHostSensors() *HostSensors {
	return &HostSensors{
		idle:    NewIdleDetector(),
		thermal: NewThermalMonitor(),
		battery: NewBatteryMonitor(),
	}
}

// IdleLevel refreshes and returns the idle classification.
func (s *HostSensors) IdleLevel() domain.IdleLevel {
	return s.idle.Update()
}

// CPUTemp returns the CPU temperature in Celsius, 0 when unknown.
func (s *HostSensors) CPUTemp() int { return s.thermal.CPUTemp() }

// Battery returns the current battery reading.
func (s *HostSensors) Battery() BatteryState { return s.battery.State() }

// Governor turns sensor readings into a PlaybackPolicy and reports each
// change through OnChange. It never touches the wallpaper itself.
type Governor struct {
	mu       sync.RWMutex
	sensors  Sensors
	config   GovernorConfig
	policy   domain.PlaybackPolicy
	onChange func(domain.PlaybackPolicy)
	log      *slog.Logger
}

// NewGovernor creates a power governor. onChange may be nil.
func NewGovernor(cfg GovernorConfig, sensors Sensors, onChange func(domain.PlaybackPolicy), log *slog.Logger) *Governor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultGovernorConfig().TickInterval
	}
	return &Governor{
		sensors:  sensors,
		config:   cfg,
		onChange: onChange,
		log:      log,
	}
}

// Policy returns the current policy (thread-safe).
func (g *Governor) Policy() domain.PlaybackPolicy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// Run starts the governor tick loop. Call in a goroutine.
func (g *Governor) Run(ctx context.Context) {
	ticker := time.NewTicker(g.config.TickInterval)
	defer ticker.Stop()

	g.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

// tick recomputes the policy and fires onChange when it flips.
func (g *Governor) tick() {
	level := g.sensors.IdleLevel()
	metrics.IdleLevel.Set(float64(level))

	next := g.evaluate(level)

	g.mu.Lock()
	changed := next.Pause != g.policy.Pause
	g.policy = next
	g.mu.Unlock()

	if !changed {
		return
	}
	if next.Pause {
		metrics.PowerPaused.Set(1)
		g.log.Info("power policy: pause", "reason", next.Reason)
	} else {
		metrics.PowerPaused.Set(0)
		g.log.Info("power policy: resume")
	}
	if g.onChange != nil {
		g.onChange(next)
	}
}

// evaluate applies the lock, thermal and battery rules in that order.
func (g *Governor) evaluate(level domain.IdleLevel) domain.PlaybackPolicy {
	if g.config.PauseOnLock && level == domain.IdleLocked {
		return domain.PlaybackPolicy{Pause: true, Reason: "session locked"}
	}
	if g.config.ThermalPauseC > 0 {
		if temp := g.sensors.CPUTemp(); temp > g.config.ThermalPauseC {
			return domain.PlaybackPolicy{Pause: true, Reason: fmt.Sprintf("cpu at %d°C", temp)}
		}
	}
	if g.config.BatteryMinPct > 0 {
		b := g.sensors.Battery()
		if b.Present && !b.Charging && b.Percent < g.config.BatteryMinPct {
			return domain.PlaybackPolicy{Pause: true, Reason: fmt.Sprintf("battery at %d%%", b.Percent)}
		}
	}
	return domain.PlaybackPolicy{}
}
