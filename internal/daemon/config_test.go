package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.Scheduler.Tick != "60s" {
		t.Errorf("Scheduler.Tick = %q, want %q", cfg.Scheduler.Tick, "60s")
	}
	if cfg.Wallpaper.SettleDelay != "500ms" {
		t.Errorf("Wallpaper.SettleDelay = %q, want %q", cfg.Wallpaper.SettleDelay, "500ms")
	}
	if got := cfg.Resources.Limits(); got != domain.DefaultResourceLimits() {
		t.Errorf("Resources.Limits() = %+v, want defaults", got)
	}
}

func TestAetherHome_Env(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AETHER_HOME", dir)
	if AetherHome() != dir {
		t.Errorf("AetherHome() = %q, want %q", AetherHome(), dir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[scheduler]
tick = "30s"
interval_every_pass = true

[resources]
max_memory = "1GB"
max_processes = 3

[resources.estimates]
video = "200MB"

[wallpaper]
stop_on_exit = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if !cfg.Scheduler.IntervalEveryPass || cfg.Scheduler.Tick != "30s" {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if !cfg.Wallpaper.StopOnExit {
		t.Error("Wallpaper.StopOnExit should be true")
	}
	if cfg.Wallpaper.SettleDelay != "500ms" {
		t.Errorf("unset keys should keep defaults, SettleDelay = %q", cfg.Wallpaper.SettleDelay)
	}
	l := cfg.Resources.Limits()
	if l.MaxMemory != 1<<30 || l.MaxProcesses != 3 {
		t.Errorf("Limits() = %+v", l)
	}
	est, err := cfg.Resources.EstimateOverrides()
	if err != nil {
		t.Fatalf("EstimateOverrides() error: %v", err)
	}
	if est[domain.WallpaperVideo] != 200<<20 {
		t.Errorf("video estimate = %d, want %d", est[domain.WallpaperVideo], 200<<20)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfigFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[scheduler\ntick = "), 0o644)
	_, err := LoadConfigFile(path)
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestEstimateOverrides_UnknownType(t *testing.T) {
	c := ResourcesConfig{Estimates: map[string]string{"hologram": "1MB"}}
	if _, err := c.EstimateOverrides(); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"512MB", 512 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"256KB", 256 * 1024},
		{"1tb", 1 << 40},
		{"4096", 4096},
		{"10 MB", 10 * 1024 * 1024},
		{"", 7},
		{"lots", 7},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseSize(tt.input, 7)
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSize_Exported(t *testing.T) {
	if v, err := ParseSize("64MB"); err != nil || v != 64<<20 {
		t.Errorf("ParseSize(64MB) = %d, %v", v, err)
	}
	if v, err := ParseSize("0"); err != nil || v != 0 {
		t.Errorf("ParseSize(0) = %d, %v", v, err)
	}
	if _, err := ParseSize("plenty"); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("ParseSize(plenty) error = %v, want ErrConfig", err)
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("90s", time.Second); got != 90*time.Second {
		t.Errorf("parseDuration(90s) = %v", got)
	}
	if got := parseDuration("soon", time.Second); got != time.Second {
		t.Errorf("parseDuration(soon) = %v, want fallback", got)
	}
	if got := parseDuration("-5s", time.Second); got != time.Second {
		t.Errorf("parseDuration(-5s) = %v, want fallback", got)
	}
}
