package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/infra/process"
)

// Visualizer runs a shader or an audio-reactive visualizer. The two differ
// only in how the platform builds their launch.
type Visualizer struct {
	typ    domain.WallpaperType
	deps   Deps
	log    *slog.Logger
	path   string
	launch func(path string) (platform.Launch, error)

	child  *process.Child
	target *process.Target
	owned  bool
}

func newVisualizer(t domain.WallpaperType, path string, deps Deps, log *slog.Logger,
	launch func(string) (platform.Launch, error)) *Visualizer {
	return &Visualizer{typ: t, deps: deps, log: log, path: path, launch: launch}
}

func (v *Visualizer) Type() domain.WallpaperType { return v.typ }
func (v *Visualizer) Path() string               { return v.path }

func (v *Visualizer) PID() int {
	if v.target == nil {
		return 0
	}
	return v.target.PID()
}

func (v *Visualizer) Check(context.Context) error {
	if err := checkAsset(v.path); err != nil {
		return err
	}
	return checkLaunch(v.launch(v.path))
}

func (v *Visualizer) Start(ctx context.Context) error {
	began := time.Now()
	err := v.start(ctx)
	observeStart(v.typ, began, err)
	return err
}

func (v *Visualizer) start(ctx context.Context) error {
	l, err := v.launch(v.path)
	if err != nil {
		return err
	}
	child, err := v.deps.Supervisor.Spawn(ctx, l.Candidates)
	if err != nil {
		return err
	}
	found, err := v.deps.Supervisor.Discover(ctx, child, l.Discover, l.Needle)
	if err != nil {
		stopChild(v.log, child, v.deps.StopTimeout)
		return err
	}
	v.child = child
	v.target = process.NewTarget(l.Discover, l.Needle, found.PID)
	v.owned = found.Owned
	v.log.Info("visualizer running", "path", v.path, "pid", found.PID, "owned", found.Owned, "helper", child.Command().Name)
	return nil
}

func (v *Visualizer) Stop(ctx context.Context) error {
	stopOwned(ctx, v.log, v.deps, v.child, v.target, v.owned)
	v.child = nil
	v.target = nil
	v.owned = false
	observe(v.typ, "stop", nil)
	return nil
}

// Pause suspends the process, minimizing its window where signals are
// unavailable.
func (v *Visualizer) Pause(ctx context.Context) error {
	if v.target == nil {
		return nil
	}
	err := v.deps.Supervisor.Suspend(ctx, v.target)
	if err != nil {
		v.log.Debug("suspend failed, minimizing", "error", err)
		err = v.deps.Supervisor.Minimize(ctx, v.target)
	}
	observe(v.typ, "pause", err)
	return err
}

func (v *Visualizer) Resume(ctx context.Context) error {
	if v.target == nil {
		return nil
	}
	err := v.deps.Supervisor.Resume(ctx, v.target)
	if err != nil {
		v.log.Debug("resume failed, restoring window", "error", err)
		err = v.deps.Supervisor.Restore(ctx, v.target)
	}
	observe(v.typ, "resume", err)
	return err
}
