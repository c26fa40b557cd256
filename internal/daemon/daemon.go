package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aether-desk/aether/internal/api"
	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/health"
	"github.com/aether-desk/aether/internal/infra/backend"
	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/infra/process"
	"github.com/aether-desk/aether/internal/infra/resource"
	"github.com/aether-desk/aether/internal/infra/scheduler"
	"github.com/aether-desk/aether/internal/infra/sqlite"
	"github.com/aether-desk/aether/internal/logging"
)

// SeededKey marks that the default schedule has been written once.
const SeededKey = "schedule_seeded"

// Daemon is the aether runtime. It wires the platform strategy, the slot,
// the scheduler and the background loops behind the local API.
type Daemon struct {
	Config Config

	// Restore re-applies the last applied wallpaper when Serve starts.
	Restore bool

	DB         *sqlite.DB
	Platform   platform.Manager
	Supervisor *process.Supervisor
	Resources  *resource.Manager
	Slot       *scheduler.Slot
	Scheduler  *scheduler.Scheduler
	Governor   *resource.Governor // nil when [power] is disabled
	Sampler    *resource.Sampler
	Health     *health.Checker
	Server     *api.Server

	home      string
	log       *slog.Logger
	logCloser io.Closer
	cancel    context.CancelFunc

	powerMu     sync.Mutex
	powerPaused bool // the governor, not the user, paused the slot
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	return newDaemon(cfg, aetherHome(), backend.New)
}

func newDaemon(cfg Config, home string, factory scheduler.Factory) (*Daemon, error) {
	closer, err := logging.Init(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	estimates, err := mergeEstimates(cfg.Resources)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// Open SQLite
	db, err := sqlite.Open(home)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Platform strategy, chosen once
	plat := platform.Detect(platform.HostEnv(), platform.Options{Log: logging.L("platform")})

	sup := process.NewSupervisor(process.Options{
		Settle: parseDuration(cfg.Wallpaper.SettleDelay, process.DefaultSettleDelay),
		Log:    logging.L("process"),
	})

	res := resource.NewManager(cfg.Resources.Limits())

	var d *Daemon
	slot := scheduler.NewSlot(scheduler.SlotOptions{
		Deps: backend.Deps{
			Platform:            plat,
			Supervisor:          sup,
			Log:                 logging.L("backend"),
			VideoSuspendOnPause: cfg.Wallpaper.VideoSuspendOnPause,
		},
		Factory:   factory,
		Resources: res,
		State:     db,
		Log:       logging.L("slot"),
		Estimates: estimates,
		OnApplied: func() { d.onApplied() },
	})

	sched := scheduler.New(scheduler.Config{
		Tick:              parseDuration(cfg.Scheduler.Tick, 60*time.Second),
		IntervalEveryPass: cfg.Scheduler.IntervalEveryPass,
		Rotation: scheduler.RotationConfig{
			Enabled:  cfg.AutoChange.Enabled,
			Interval: parseDuration(cfg.AutoChange.Interval, 30*time.Minute),
			Folder:   cfg.AutoChange.Folder,
		},
	}, slot, db, logging.L("scheduler"))

	d = &Daemon{
		Config:     cfg,
		DB:         db,
		Platform:   plat,
		Supervisor: sup,
		Resources:  res,
		Slot:       slot,
		Scheduler:  sched,
		home:       home,
		log:        logging.L("daemon"),
		logCloser:  closer,
	}

	if cfg.Power.Enabled {
		d.Governor = resource.NewGovernor(resource.GovernorConfig{
			PauseOnLock:   cfg.Power.PauseOnLock,
			BatteryMinPct: cfg.Power.BatteryMinPct,
			ThermalPauseC: cfg.Power.ThermalPauseC,
			TickInterval:  parseDuration(cfg.Power.Tick, 5*time.Second),
		}, resource.NewHostSensors(), d.onPolicy, logging.L("power"))
	}

	d.Sampler = resource.NewSampler(res, resource.GopsutilStats{}, d.trackedPIDs,
		parseDuration(cfg.Resources.SampleInterval, 10*time.Second), logging.L("resources"))

	d.Health = health.NewChecker(health.Options{
		DB:        db,
		Scheduler: sched,
		Tools:     plat.Tools(),
		DataDir:   home,
	})

	// Initialize API server
	d.Server = api.NewServer(sched, res, plat)
	d.Server.SetHealth(d.Health)

	// Enable Prometheus /metrics if configured
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	return d, nil
}

// mergeEstimates merges the configured memory overrides into the default
// per-type reservations.
func mergeEstimates(c ResourcesConfig) (map[domain.WallpaperType]domain.ResourceUsage, error) {
	out := scheduler.DefaultEstimates()
	overrides, err := c.EstimateOverrides()
	if err != nil {
		return nil, err
	}
	for t, mem := range overrides {
		if t == domain.WallpaperStatic {
			continue // static never reserves
		}
		u := out[t]
		u.MemoryUsed = mem
		out[t] = u
	}
	return out, nil
}

// Serve starts the background loops and the HTTP server and blocks until
// ctx is done or a shutdown signal arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			d.log.Info("shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := d.SeedDefaults(); err != nil {
		d.log.Warn("seed default schedule", "error", err)
	}
	if d.Restore {
		d.RestoreLast(ctx)
	}

	// The scheduler stops cooperatively; a pass in flight keeps its context.
	if err := d.Scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.Governor != nil {
		g.Go(func() error {
			d.Governor.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		d.Sampler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		d.shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	fmt.Printf("aether serving on http://%s (platform %s)\n", addr, d.Platform.Name())
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	return g.Wait()
}

// shutdown stops the scheduler and, with stop_on_exit, the active wallpaper.
func (d *Daemon) shutdown(ctx context.Context) {
	if err := d.Scheduler.Stop(); err != nil && !errors.Is(err, domain.ErrSchedulerStopped) {
		d.log.Warn("stop scheduler", "error", err)
	}
	if !d.Config.Wallpaper.StopOnExit {
		return
	}
	if err := d.Slot.StopActive(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveWallpaper) {
		d.log.Warn("stop active wallpaper", "error", err)
	}
}

// SeedDefaults writes the Morning/Evening schedule the first time the
// daemon runs against a database. A schedule the user already has is left
// alone either way.
func (d *Daemon) SeedDefaults() error {
	seeded, err := d.DB.Setting(SeededKey)
	if err != nil {
		return err
	}
	if seeded != "" {
		return nil
	}
	if len(d.Scheduler.Items()) == 0 {
		for _, item := range DefaultSchedule(d.Config.Wallpaper.Dir) {
			if _, err := d.Scheduler.AddItem(item); err != nil {
				return err
			}
		}
		d.log.Info("seeded default schedule", "dir", d.Config.Wallpaper.Dir)
	}
	return d.DB.SetSetting(SeededKey, time.Now().UTC().Format(time.RFC3339))
}

// DefaultSchedule is the first-run schedule: a morning image at 08:00 and
// an evening image at 18:00.
func DefaultSchedule(dir string) []domain.ScheduleItem {
	item := func(name, desc, file string, hour int) domain.ScheduleItem {
		return domain.ScheduleItem{
			Trigger: domain.TimeTrigger(hour, 0),
			Wallpaper: domain.WallpaperSpec{
				Name:        name,
				Description: desc,
				Author:      "Aether-Desk",
				Version:     "1.0.0",
				Type:        domain.WallpaperStatic,
				Path:        filepath.Join(dir, file),
			},
			Enabled: true,
		}
	}
	return []domain.ScheduleItem{
		item("Morning", "Morning wallpaper", "morning.jpg", 8),
		item("Evening", "Evening wallpaper", "evening.jpg", 18),
	}
}

// RestoreLast re-applies the last wallpaper recorded by the slot.
func (d *Daemon) RestoreLast(ctx context.Context) {
	spec, ok, err := d.Slot.LastApplied()
	if err != nil {
		d.log.Warn("read last wallpaper", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := d.Slot.Apply(ctx, spec); err != nil {
		d.log.Warn("restore last wallpaper", "name", spec.Name, "target", spec.Target(), "error", err)
		return
	}
	d.log.Info("restored last wallpaper", "name", spec.Name, "type", spec.Type.String())
}

// onPolicy applies a governor decision to the slot. It only resumes what
// it paused itself.
func (d *Daemon) onPolicy(p domain.PlaybackPolicy) {
	d.powerMu.Lock()
	defer d.powerMu.Unlock()
	d.applyPolicyLocked(p)
}

// onApplied holds a freshly applied wallpaper to the standing policy. The
// governor only reports flips, so a wallpaper started while paused for
// power would otherwise play until the next one.
func (d *Daemon) onApplied() {
	d.powerMu.Lock()
	defer d.powerMu.Unlock()
	d.powerPaused = false
	if d.Governor != nil {
		d.applyPolicyLocked(d.Governor.Policy())
	}
}

func (d *Daemon) applyPolicyLocked(p domain.PlaybackPolicy) {
	ctx := context.Background()
	if p.Pause {
		a, ok := d.Slot.Active()
		if !ok || a.Paused {
			return
		}
		if err := d.Slot.PauseActive(ctx); err != nil {
			d.log.Warn("power pause", "reason", p.Reason, "error", err)
			return
		}
		d.powerPaused = true
		return
	}

	if !d.powerPaused {
		return
	}
	d.powerPaused = false
	if err := d.Slot.ResumeActive(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveWallpaper) {
		d.log.Warn("power resume", "error", err)
	}
}

// trackedPIDs feeds the sampler: the slot's reservation is owned by the
// active helper.
func (d *Daemon) trackedPIDs() map[string]int {
	pid := d.Slot.PID()
	if pid <= 0 {
		return nil
	}
	return map[string]int{scheduler.ResourceID: pid}
}

// Home returns the data directory the daemon was opened on.
func (d *Daemon) Home() string { return d.home }

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.logCloser != nil {
		_ = d.logCloser.Close()
	}
}
