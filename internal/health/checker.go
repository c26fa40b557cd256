// Package health runs periodic health checks with auto-recovery.
package health

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aether-desk/aether/internal/infra/metrics"
)

// DefaultMinFree is the free space the data directory needs for the
// database WAL and log rotation.
const DefaultMinFree = 64 << 20

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"` // a recovery action ran without error
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is the database under check.
type Pinger interface {
	Ping() error
}

// Loop is a background loop that can be restarted.
type Loop interface {
	Running() bool
	Start(ctx context.Context) error
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// Options lists what the standard checks look at. Nil fields drop the
// corresponding check.
type Options struct {
	DB        Pinger
	Scheduler Loop
	Tools     []string // static-chain executables; at least one must resolve
	DataDir   string
	MinFree   uint64
	LookPath  func(string) (string, error)
	FreeSpace func(dir string) (uint64, error)
	Interval  time.Duration
}

func freeSpace(dir string) (uint64, error) {
	u, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// NewChecker creates a health checker with the sqlite, scheduler,
// platform_tools and disk_space checks.
func NewChecker(o Options) *Checker {
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.FreeSpace == nil {
		o.FreeSpace = freeSpace
	}
	if o.MinFree == 0 {
		o.MinFree = DefaultMinFree
	}
	if o.Interval <= 0 {
		o.Interval = 60 * time.Second
	}
	c := &Checker{interval: o.Interval}

	if o.DB != nil {
		c.checks = append(c.checks, Check{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return o.DB.Ping()
			},
		})
	}
	if o.Scheduler != nil {
		c.checks = append(c.checks, Check{
			Name: "scheduler",
			CheckFn: func(ctx context.Context) error {
				if !o.Scheduler.Running() {
					return fmt.Errorf("scheduler loop is not running")
				}
				return nil
			},
			RecoverFn: func(ctx context.Context) error {
				return o.Scheduler.Start(ctx)
			},
		})
	}
	if o.Tools != nil {
		tools, look := o.Tools, o.LookPath
		c.checks = append(c.checks, Check{
			Name: "platform_tools",
			CheckFn: func(ctx context.Context) error {
				return checkTools(tools, look)
			},
		})
	}
	if o.DataDir != "" {
		dir, minFree, free := o.DataDir, o.MinFree, o.FreeSpace
		c.checks = append(c.checks, Check{
			Name: "disk_space",
			CheckFn: func(ctx context.Context) error {
				return checkDiskSpace(dir, minFree, free)
			},
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check now.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		statuses[i] = check.run(ctx)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func (ch Check) run(ctx context.Context) Status {
	s := Status{Name: ch.Name, CheckedAt: time.Now()}
	err := ch.CheckFn(ctx)
	if err == nil {
		s.Healthy = true
		metrics.HealthCheckStatus.WithLabelValues(ch.Name).Set(1)
		return s
	}
	s.Error = err.Error()
	if ch.RecoverFn != nil {
		s.Recovered = ch.RecoverFn(ctx) == nil
	}
	metrics.HealthCheckStatus.WithLabelValues(ch.Name).Set(0)
	return s
}

func checkDiskSpace(dir string, minFree uint64, free func(string) (uint64, error)) error {
	n, err := free(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if n < minFree {
		return fmt.Errorf("%s has %d MB free, need %d MB", dir, n>>20, minFree>>20)
	}
	return nil
}

func checkTools(tools []string, look func(string) (string, error)) error {
	if len(tools) == 0 {
		return nil // strategy applies images natively
	}
	for _, t := range tools {
		if _, err := look(t); err == nil {
			return nil
		}
	}
	return fmt.Errorf("none of %s found on PATH", strings.Join(tools, ", "))
}
