// Package backend implements the five wallpaper kinds behind one interface.
//
// A backend is owned by exactly one caller (the scheduler's slot) and is not
// safe for concurrent use beyond that owner.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/infra/process"
)

// Backend is one active wallpaper.
type Backend interface {
	Type() domain.WallpaperType
	Path() string // "" when the type has no asset path

	// Check verifies the asset and helper exist without touching the desktop.
	Check(ctx context.Context) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// ProcessBacked is implemented by backends that run a helper process.
type ProcessBacked interface {
	PID() int
}

// Deps are the collaborators every backend draws from.
type Deps struct {
	Platform   platform.Manager
	Supervisor *process.Supervisor
	Log        *slog.Logger

	// StopTimeout bounds the wait for a killed helper. Default 5s.
	StopTimeout time.Duration

	// VideoSuspendOnPause pauses video by suspending the player instead
	// of stopping it.
	VideoSuspendOnPause bool
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.StopTimeout <= 0 {
		d.StopTimeout = 5 * time.Second
	}
	return d
}

// New builds the backend for spec. The switch is exhaustive over
// domain.WallpaperTypes.
func New(spec domain.WallpaperSpec, deps Deps) (Backend, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	log := deps.Log.With("type", spec.Type.String())

	switch spec.Type {
	case domain.WallpaperStatic:
		return &Static{deps: deps, log: log, path: spec.Path}, nil
	case domain.WallpaperVideo:
		return &Video{deps: deps, log: log, path: spec.Path}, nil
	case domain.WallpaperWeb:
		return &Web{deps: deps, log: log, url: spec.URL}, nil
	case domain.WallpaperShader:
		return newVisualizer(domain.WallpaperShader, spec.Path, deps, log, deps.Platform.ShaderLaunch), nil
	case domain.WallpaperAudio:
		return newVisualizer(domain.WallpaperAudio, spec.Path, deps, log, deps.Platform.AudioLaunch), nil
	default:
		return nil, fmt.Errorf("%w: unsupported wallpaper type %d", domain.ErrWallpaper, int(spec.Type))
	}
}

// checkAsset reports a missing or unreadable asset as a wallpaper error.
func checkAsset(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: asset %s: %v", domain.ErrWallpaper, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: asset %s is a directory", domain.ErrWallpaper, path)
	}
	return nil
}

// checkLaunch verifies a launch can be built and one candidate resolves.
func checkLaunch(l platform.Launch, err error) error {
	if err != nil {
		return err
	}
	_, _, err = process.Resolve(l.Candidates)
	return err
}

func observe(t domain.WallpaperType, op string, err error) {
	metrics.BackendOps.WithLabelValues(t.String(), op, metrics.Result(err)).Inc()
}

func observeStart(t domain.WallpaperType, began time.Time, err error) {
	observe(t, "start", err)
	if err == nil {
		metrics.BackendStartLatency.WithLabelValues(t.String()).Observe(time.Since(began).Seconds())
	}
}

// stopChild kills an owned helper, logging rather than returning failures.
// stopOwned terminates the discovered process when it sits in the child's
// tree, then kills the child. A process outside the tree belongs to the
// user's session and is left running.
func stopOwned(ctx context.Context, log *slog.Logger, d Deps, c *process.Child, t *process.Target, owned bool) {
	if t != nil && t.PID() > 0 && (c == nil || t.PID() != c.PID()) {
		if owned {
			if err := d.Supervisor.Terminate(ctx, process.NewOwnedTarget(t.PID())); err != nil {
				log.Warn("helper not terminated", "pid", t.PID(), "error", err)
			}
		} else {
			log.Info("leaving shared helper running", "pid", t.PID())
		}
	}
	stopChild(log, c, d.StopTimeout)
}

func stopChild(log *slog.Logger, c *process.Child, timeout time.Duration) {
	if c == nil {
		return
	}
	if err := c.Stop(timeout); err != nil {
		log.Warn("helper did not stop cleanly", "pid", c.PID(), "error", err)
	}
}
