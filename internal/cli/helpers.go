package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aether-desk/aether/internal/api"
	"github.com/aether-desk/aether/internal/daemon"
	"github.com/aether-desk/aether/internal/domain"
)

// newClient returns an API client for --addr, or for the configured
// host and port.
func newClient() (*api.Client, error) {
	if apiAddr != "" {
		return api.NewClient(apiAddr), nil
	}
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)), nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// humanSize formats bytes as "1.5 GB".
func humanSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGT"[exp])
}

func describe(a domain.ActiveWallpaper) string {
	s := fmt.Sprintf("%s (%s) %s", displayName(a.Spec), a.Spec.Type, a.Spec.Target())
	if a.PID > 0 {
		s += fmt.Sprintf(" pid %d", a.PID)
	}
	if a.Paused {
		s += " [paused]"
	}
	return s
}

func displayName(s domain.WallpaperSpec) string {
	if s.Name != "" {
		return s.Name
	}
	return "-"
}
