package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/backend"
	"github.com/aether-desk/aether/internal/infra/metrics"
	"github.com/aether-desk/aether/internal/infra/resource"
)

// ResourceID is the id the active wallpaper reserves resources under.
const ResourceID = "wallpaper"

// LastAppliedKey is the state-store key holding the last applied spec.
const LastAppliedKey = "last_wallpaper"

// Factory builds a backend. backend.New is the production factory.
type Factory func(domain.WallpaperSpec, backend.Deps) (backend.Backend, error)

// SlotOptions configures a Slot.
type SlotOptions struct {
	Deps      backend.Deps
	Factory   Factory           // default backend.New
	Resources *resource.Manager // nil disables admission
	State     domain.StateStore // nil disables last-applied tracking
	Log       *slog.Logger

	// Estimates is the reservation made for each helper-backed type
	// before it starts. Static never reserves.
	Estimates map[domain.WallpaperType]domain.ResourceUsage

	// OnApplied runs after every successful Apply, outside the slot lock.
	OnApplied func()
}

// DefaultEstimates are the reservations used when none are configured.
func DefaultEstimates() map[domain.WallpaperType]domain.ResourceUsage {
	const mb = 1024 * 1024
	return map[domain.WallpaperType]domain.ResourceUsage{
		domain.WallpaperVideo:  {MemoryUsed: 128 * mb, GPUMemoryUsed: 64 * mb, ActiveProcesses: 1},
		domain.WallpaperWeb:    {MemoryUsed: 256 * mb, GPUMemoryUsed: 32 * mb, ActiveProcesses: 1},
		domain.WallpaperShader: {MemoryUsed: 64 * mb, GPUMemoryUsed: 128 * mb, ActiveProcesses: 1},
		domain.WallpaperAudio:  {MemoryUsed: 64 * mb, GPUMemoryUsed: 64 * mb, ActiveProcesses: 1},
	}
}

// Slot is the single owner of the active backend. Every operation on the
// active wallpaper, scheduled or manual, is serialized through it.
type Slot struct {
	deps      backend.Deps
	factory   Factory
	resources *resource.Manager
	state     domain.StateStore
	estimates map[domain.WallpaperType]domain.ResourceUsage
	onApplied func()
	log       *slog.Logger

	mu        sync.Mutex
	active    backend.Backend
	spec      domain.WallpaperSpec
	paused    bool
	startedAt time.Time
}

// NewSlot creates an empty slot.
func NewSlot(o SlotOptions) *Slot {
	if o.Factory == nil {
		o.Factory = backend.New
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Estimates == nil {
		o.Estimates = DefaultEstimates()
	}
	return &Slot{
		deps:      o.Deps,
		factory:   o.Factory,
		resources: o.Resources,
		state:     o.State,
		estimates: o.Estimates,
		onApplied: o.OnApplied,
		log:       o.Log,
	}
}

// Apply replaces the active wallpaper with spec.
//
// The new backend is built, preflighted and admitted before the old one is
// touched; a failure in any of those leaves the slot as it was. The old
// backend is then stopped and the new one started. If the start fails the
// slot is left empty and the reservation released.
func (s *Slot) Apply(ctx context.Context, spec domain.WallpaperSpec) error {
	if err := s.apply(ctx, spec); err != nil {
		return err
	}
	if s.onApplied != nil {
		s.onApplied()
	}
	return nil
}

func (s *Slot) apply(ctx context.Context, spec domain.WallpaperSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.factory(spec, s.deps)
	if err != nil {
		return err
	}
	if err := next.Check(ctx); err != nil {
		return err
	}
	reserved, err := s.admitLocked(spec.Type)
	if err != nil {
		return err
	}

	s.stopLocked(ctx)
	if !reserved {
		s.releaseLocked()
	}

	if err := next.Start(ctx); err != nil {
		if reserved {
			s.releaseLocked()
		}
		return err
	}

	s.active = next
	s.spec = spec
	s.paused = false
	s.startedAt = time.Now()
	metrics.ActiveWallpaper.WithLabelValues(spec.Type.String()).Set(1)
	s.log.Info("wallpaper applied", "name", spec.Name, "type", spec.Type.String(), "target", spec.Target())
	s.rememberLocked(spec)
	return nil
}

// admitLocked reserves the estimate for t. An existing reservation is
// resized rather than duplicated so that admission can be decided before
// the old backend is stopped.
func (s *Slot) admitLocked(t domain.WallpaperType) (bool, error) {
	if s.resources == nil || !t.RunsHelper() {
		return false, nil
	}
	est := s.estimates[t]
	if est.ActiveProcesses == 0 {
		est.ActiveProcesses = 1
	}
	if _, ok := s.resources.UsageOf(ResourceID); ok {
		err := s.resources.Update(ResourceID, est)
		if !errors.Is(err, domain.ErrResourceNotFound) {
			return true, err
		}
		// Collected between the lookup and the resize.
	}
	return true, s.resources.Register(ResourceID, est)
}

func (s *Slot) releaseLocked() {
	if s.resources == nil {
		return
	}
	if _, err := s.resources.Unregister(ResourceID); err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
		s.log.Warn("release reservation", "error", err)
	}
}

// stopLocked stops the active backend. The slot counts as empty afterwards
// even if the stop failed.
func (s *Slot) stopLocked(ctx context.Context) error {
	if s.active == nil {
		return nil
	}
	old := s.active
	s.active = nil
	s.paused = false
	metrics.ActiveWallpaper.WithLabelValues(old.Type().String()).Set(0)

	err := old.Stop(ctx)
	if err != nil {
		s.log.Warn("stop previous wallpaper", "type", old.Type().String(), "error", err)
	}
	return err
}

// StopActive stops the active wallpaper and releases its reservation.
func (s *Slot) StopActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.ErrNoActiveWallpaper
	}
	err := s.stopLocked(ctx)
	s.releaseLocked()
	return err
}

// PauseActive pauses the active wallpaper.
func (s *Slot) PauseActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.ErrNoActiveWallpaper
	}
	if err := s.active.Pause(ctx); err != nil {
		return err
	}
	s.paused = true
	return nil
}

// ResumeActive resumes a paused wallpaper.
func (s *Slot) ResumeActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.ErrNoActiveWallpaper
	}
	if err := s.active.Resume(ctx); err != nil {
		return err
	}
	s.paused = false
	return nil
}

// ClearDesktop stops any active wallpaper and resets the desktop background.
func (s *Slot) ClearDesktop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopErr := s.stopLocked(ctx)
	s.releaseLocked()
	if s.deps.Platform == nil {
		return stopErr
	}
	return errors.Join(stopErr, s.deps.Platform.Clear(ctx))
}

// Active returns a snapshot of the active wallpaper.
func (s *Slot) Active() (domain.ActiveWallpaper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.ActiveWallpaper{}, false
	}
	return domain.ActiveWallpaper{
		Spec:      s.spec,
		PID:       pidOf(s.active),
		Paused:    s.paused,
		StartedAt: s.startedAt,
	}, true
}

// PID returns the active helper's PID, 0 when there is none.
func (s *Slot) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pidOf(s.active)
}

func pidOf(b backend.Backend) int {
	if p, ok := b.(backend.ProcessBacked); ok {
		return p.PID()
	}
	return 0
}

func (s *Slot) rememberLocked(spec domain.WallpaperSpec) {
	if s.state == nil {
		return
	}
	b, err := json.Marshal(spec)
	if err == nil {
		err = s.state.SetSetting(LastAppliedKey, string(b))
	}
	if err != nil {
		s.log.Warn("record last wallpaper", "error", err)
	}
}

// LastApplied returns the last spec applied successfully, as recorded in
// the state store.
func (s *Slot) LastApplied() (domain.WallpaperSpec, bool, error) {
	if s.state == nil {
		return domain.WallpaperSpec{}, false, nil
	}
	raw, err := s.state.Setting(LastAppliedKey)
	if err != nil || raw == "" {
		return domain.WallpaperSpec{}, false, err
	}
	var spec domain.WallpaperSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return domain.WallpaperSpec{}, false, fmt.Errorf("%w: last wallpaper: %v", domain.ErrConfig, err)
	}
	return spec, true, nil
}
