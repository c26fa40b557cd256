package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/process"
)

// Video loops a media file with an external player, embedded in the
// desktop layer when the platform offers one.
//
// Pause stops the player and Resume restarts it from the beginning, unless
// Deps.VideoSuspendOnPause is set.
type Video struct {
	deps Deps
	log  *slog.Logger
	path string

	child  *process.Child
	target *process.Target
	paused bool
}

func (v *Video) Type() domain.WallpaperType { return domain.WallpaperVideo }
func (v *Video) Path() string               { return v.path }

// PID returns the player's PID, 0 when not running.
func (v *Video) PID() int {
	if v.target == nil {
		return 0
	}
	return v.target.PID()
}

func (v *Video) Check(context.Context) error {
	if err := checkAsset(v.path); err != nil {
		return err
	}
	return checkLaunch(v.deps.Platform.VideoLaunch(v.path, 0))
}

func (v *Video) Start(ctx context.Context) error {
	began := time.Now()
	err := v.start(ctx)
	observeStart(domain.WallpaperVideo, began, err)
	return err
}

func (v *Video) start(ctx context.Context) error {
	v.killChild()

	embed, _ := v.deps.Platform.DesktopWindow()
	launch, err := v.deps.Platform.VideoLaunch(v.path, embed)
	if err != nil {
		return err
	}
	child, err := v.deps.Supervisor.Spawn(ctx, launch.Candidates)
	if err != nil {
		return err
	}
	// The player is spawned directly: track it, never a scanned match.
	pid, err := v.deps.Supervisor.Settle(ctx, child)
	if err != nil {
		stopChild(v.log, child, v.deps.StopTimeout)
		return err
	}

	v.child = child
	v.target = process.NewOwnedTarget(pid)
	v.paused = false
	v.log.Info("video wallpaper playing", "path", v.path, "pid", pid, "embedded", embed != 0)
	return nil
}

func (v *Video) Stop(context.Context) error {
	v.killChild()
	v.paused = false
	observe(domain.WallpaperVideo, "stop", nil)
	return nil
}

func (v *Video) killChild() {
	stopChild(v.log, v.child, v.deps.StopTimeout)
	v.child = nil
	v.target = nil
}

func (v *Video) Pause(ctx context.Context) error {
	if v.deps.VideoSuspendOnPause {
		if v.target == nil {
			return nil
		}
		err := v.deps.Supervisor.Suspend(ctx, v.target)
		observe(domain.WallpaperVideo, "pause", err)
		if err == nil {
			v.paused = true
		}
		return err
	}
	v.killChild()
	v.paused = true
	observe(domain.WallpaperVideo, "pause", nil)
	return nil
}

func (v *Video) Resume(ctx context.Context) error {
	if !v.paused {
		return nil
	}
	var err error
	if v.deps.VideoSuspendOnPause && v.target != nil {
		err = v.deps.Supervisor.Resume(ctx, v.target)
	} else {
		err = v.start(ctx)
	}
	observe(domain.WallpaperVideo, "resume", err)
	if err == nil {
		v.paused = false
	}
	return err
}
