package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/process"
)

// Web opens a page in the platform browser. The browser is usually a shared
// instance the launcher hands off to, so pause goes through the PID found by
// discovery rather than the launcher we own. Stop only terminates processes
// in the launcher's tree; a window opened in a shared instance stays open.
type Web struct {
	deps Deps
	log  *slog.Logger
	url  string

	child  *process.Child
	target *process.Target
	owned  bool
}

func (w *Web) Type() domain.WallpaperType { return domain.WallpaperWeb }
func (w *Web) Path() string               { return "" }

// URL returns the page being shown.
func (w *Web) URL() string { return w.url }

func (w *Web) PID() int {
	if w.target == nil {
		return 0
	}
	return w.target.PID()
}

func (w *Web) Check(context.Context) error {
	u, err := url.Parse(w.url)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: invalid url %q", domain.ErrWallpaper, w.url)
	}
	return checkLaunch(w.deps.Platform.WebLaunch(w.url))
}

func (w *Web) Start(ctx context.Context) error {
	began := time.Now()
	err := w.start(ctx)
	observeStart(domain.WallpaperWeb, began, err)
	return err
}

func (w *Web) start(ctx context.Context) error {
	launch, err := w.deps.Platform.WebLaunch(w.url)
	if err != nil {
		return err
	}
	child, err := w.deps.Supervisor.Spawn(ctx, launch.Candidates)
	if err != nil {
		return err
	}
	found, err := w.deps.Supervisor.Discover(ctx, child, launch.Discover, launch.Needle)
	if err != nil {
		stopChild(w.log, child, w.deps.StopTimeout)
		return err
	}
	w.child = child
	w.target = process.NewTarget(launch.Discover, launch.Needle, found.PID)
	w.owned = found.Owned
	w.log.Info("web wallpaper opened", "url", w.url, "pid", found.PID, "owned", found.Owned)
	return nil
}

// Stop kills the launcher and any browser process in its tree. Both are
// best-effort.
func (w *Web) Stop(ctx context.Context) error {
	stopOwned(ctx, w.log, w.deps, w.child, w.target, w.owned)
	w.child = nil
	w.target = nil
	w.owned = false
	observe(domain.WallpaperWeb, "stop", nil)
	return nil
}

// Pause minimizes the browser window, falling back to suspending it.
func (w *Web) Pause(ctx context.Context) error {
	if w.target == nil {
		return nil
	}
	err := w.deps.Supervisor.Minimize(ctx, w.target)
	if err != nil {
		w.log.Debug("minimize failed, suspending", "error", err)
		err = w.deps.Supervisor.Suspend(ctx, w.target)
	}
	observe(domain.WallpaperWeb, "pause", err)
	return err
}

func (w *Web) Resume(context.Context) error {
	return domain.NotImplemented("web resume")
}
