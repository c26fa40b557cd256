// Package daemon manages the aether daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/aether-desk/aether/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Wallpaper  WallpaperConfig  `toml:"wallpaper"`
	Resources  ResourcesConfig  `toml:"resources"`
	AutoChange AutoChangeConfig `toml:"auto_change"`
	Power      PowerConfig      `toml:"power"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// APIConfig controls the local control API.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SchedulerConfig controls the schedule loop.
type SchedulerConfig struct {
	Tick              string `toml:"tick"`
	IntervalEveryPass bool   `toml:"interval_every_pass"`
}

// WallpaperConfig controls backends and helper processes.
type WallpaperConfig struct {
	SettleDelay         string `toml:"settle_delay"`
	StopOnExit          bool   `toml:"stop_on_exit"`
	VideoSuspendOnPause bool   `toml:"video_suspend_on_pause"`
	Dir                 string `toml:"dir"`
}

// ResourcesConfig sets the resource limits and per-type reservations.
type ResourcesConfig struct {
	MaxMemory      string            `toml:"max_memory"`
	MaxCPU         float64           `toml:"max_cpu"`
	MaxGPUMemory   string            `toml:"max_gpu_memory"`
	MaxProcesses   int               `toml:"max_processes"`
	SampleInterval string            `toml:"sample_interval"`
	Estimates      map[string]string `toml:"estimates"`
}

// AutoChangeConfig rotates static images from a folder.
type AutoChangeConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
	Folder   string `toml:"folder"`
}

// PowerConfig controls the playback governor.
type PowerConfig struct {
	Enabled       bool   `toml:"enabled"`
	Tick          string `toml:"tick"`
	PauseOnLock   bool   `toml:"pause_on_lock"`
	BatteryMinPct int    `toml:"battery_min_pct"`
	ThermalPauseC int    `toml:"thermal_pause_c"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := aetherHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 7421,
		},
		Scheduler: SchedulerConfig{
			Tick: "60s",
		},
		Wallpaper: WallpaperConfig{
			SettleDelay: "500ms",
			Dir:         filepath.Join(homeDir, "wallpapers"),
		},
		Resources: ResourcesConfig{
			MaxMemory:      "512MB",
			MaxCPU:         80,
			MaxGPUMemory:   "256MB",
			MaxProcesses:   10,
			SampleInterval: "10s",
		},
		AutoChange: AutoChangeConfig{
			Interval: "30m",
		},
		Power: PowerConfig{
			Enabled:       true,
			Tick:          "5s",
			PauseOnLock:   true,
			BatteryMinPct: 20,
			ThermalPauseC: 90,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			File:      filepath.Join(homeDir, "aether.log"),
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// LoadConfig reads config from ~/.aether/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFile(filepath.Join(aetherHome(), "config.toml"))
}

// LoadConfigFile reads config from path, falling back to defaults when the
// file does not exist.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config: %v", domain.ErrConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.aether/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(aetherHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Limits converts the [resources] section. Unparseable sizes fall back to
// the defaults.
func (c ResourcesConfig) Limits() domain.ResourceLimits {
	def := domain.DefaultResourceLimits()
	l := domain.ResourceLimits{
		MaxMemory:    parseSize(c.MaxMemory, def.MaxMemory),
		MaxCPU:       c.MaxCPU,
		MaxGPUMemory: parseSize(c.MaxGPUMemory, def.MaxGPUMemory),
		MaxProcesses: c.MaxProcesses,
	}
	if l.MaxCPU <= 0 {
		l.MaxCPU = def.MaxCPU
	}
	if l.MaxProcesses <= 0 {
		l.MaxProcesses = def.MaxProcesses
	}
	return l
}

// EstimateOverrides converts [resources.estimates] into memory
// reservations keyed by type. Unknown type names are an error.
func (c ResourcesConfig) EstimateOverrides() (map[domain.WallpaperType]uint64, error) {
	out := make(map[domain.WallpaperType]uint64, len(c.Estimates))
	for name, size := range c.Estimates {
		t, err := domain.ParseWallpaperType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: resources.estimates: %v", domain.ErrConfig, err)
		}
		v := parseSize(size, 0)
		if v == 0 {
			return nil, fmt.Errorf("%w: resources.estimates.%s: bad size %q", domain.ErrConfig, name, size)
		}
		out[t] = v
	}
	return out, nil
}

// aetherHome returns the aether data directory.
func aetherHome() string {
	if env := os.Getenv("AETHER_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aether")
}

// AetherHome is exported for use by other packages.
func AetherHome() string {
	return aetherHome()
}

// parseSize converts "512MB", "1GB" or "256KB" to bytes. A bare number is
// bytes. fallback is returned for anything unparseable.
func parseSize(s string, fallback uint64) uint64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	mult := uint64(1)
	for _, u := range []struct {
		suffix string
		mult   uint64
	}{
		{"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return fallback
	}
	return v * mult
}

// ParseSize is parseSize for command-line input: an unparseable size is an
// error instead of a fallback. "0" is zero.
func ParseSize(s string) (uint64, error) {
	if strings.TrimSpace(s) == "0" {
		return 0, nil
	}
	v := parseSize(s, 0)
	if v == 0 {
		return 0, fmt.Errorf("%w: bad size %q", domain.ErrConfig, s)
	}
	return v, nil
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
