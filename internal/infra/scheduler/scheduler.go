// Package scheduler runs the schedule list against the single wallpaper slot.
//
// Core concepts:
//   - Slot: the only owner of the active backend; manual and scheduled
//     applies both go through it
//   - Pass: one evaluation of every enabled item, at most once per
//     wall-clock minute
//   - Store-first mutation: the ordered list is persisted before the
//     in-memory copy changes
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the scheduler loop.
type Config struct {
	Tick time.Duration // default 60s

	// IntervalEveryPass makes interval triggers fire on every pass
	// regardless of their duration.
	IntervalEveryPass bool

	Rotation RotationConfig
}

// DefaultConfig returns production scheduler defaults.
func DefaultConfig() Config {
	return Config{Tick: 60 * time.Second}
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

// Scheduler evaluates schedule items and applies the ones that fire.
type Scheduler struct {
	cfg      Config
	slot     *Slot
	store    domain.ScheduleStore
	rotation *Rotation
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	items     []domain.ScheduleItem
	lastFired map[string]time.Time
	lastPass  string // minute key of the last pass

	runMu   sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	passes int64
	fires  int64
	errs   int64
}

// New creates a stopped scheduler and loads the stored schedule. A load
// failure is logged and leaves the schedule empty.
func New(cfg Config, slot *Slot, store domain.ScheduleStore, log *slog.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		cfg:       cfg,
		slot:      slot,
		store:     store,
		rotation:  NewRotation(cfg.Rotation),
		log:       log,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	if store != nil {
		items, err := store.LoadSchedule()
		if err != nil {
			log.Error("load schedule", "error", fmt.Errorf("%w: %v", domain.ErrConfig, err))
		} else {
			s.items = items
		}
	}
	return s
}

// Slot returns the slot the scheduler applies into.
func (s *Scheduler) Slot() *Slot { return s.slot }

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Start runs one pass immediately and then the tick loop. Backend calls
// made by the loop use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return domain.ErrSchedulerRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.doneCh)
	s.log.Info("scheduler started", "tick", s.cfg.Tick, "items", len(s.Items()))
	return nil
}

// Stop signals the loop and waits for it. A pass already running is
// allowed to finish.
func (s *Scheduler) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.running {
		return domain.ErrSchedulerStopped
	}
	close(s.stopCh)
	<-s.doneCh
	s.running = false
	s.log.Info("scheduler stopped")
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs a pass unless one already ran in the current minute.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.now()
	key := now.Format("2006-01-02T15:04")

	s.mu.Lock()
	if key == s.lastPass {
		s.mu.Unlock()
		return false
	}
	s.lastPass = key
	s.mu.Unlock()

	s.pass(ctx, now)
	return true
}

// ─── Evaluation ─────────────────────────────────────────────────────────────

func (s *Scheduler) pass(ctx context.Context, now time.Time) {
	metrics.SchedulerPasses.Inc()
	s.mu.Lock()
	s.passes++
	items := append([]domain.ScheduleItem(nil), s.items...)
	s.mu.Unlock()

	for _, item := range items {
		if !item.Enabled {
			continue
		}
		if !s.shouldFire(item, now) {
			continue
		}
		s.fire(ctx, item, now)
	}

	if s.rotation.Due(now) {
		spec, err := s.rotation.Next(now)
		if err == nil {
			err = s.slot.Apply(ctx, spec)
		}
		if err != nil {
			s.log.Warn("auto change failed", "error", err)
		}
	}
}

func (s *Scheduler) shouldFire(item domain.ScheduleItem, now time.Time) bool {
	t := item.Trigger
	switch t.Kind {
	case domain.TriggerTime:
		return now.Hour() == t.Hour && now.Minute() == t.Minute
	case domain.TriggerInterval:
		if s.cfg.IntervalEveryPass {
			return true
		}
		s.mu.Lock()
		last, ok := s.lastFired[item.ID]
		s.mu.Unlock()
		return !ok || now.Sub(last) >= t.Every
	case domain.TriggerSystemEvent, domain.TriggerCustom:
		s.log.Debug("trigger not evaluated", "item", item.ID, "kind", t.Kind.String(), "name", t.Name)
		return false
	}
	return false
}

func (s *Scheduler) fire(ctx context.Context, item domain.ScheduleItem, now time.Time) {
	s.mu.Lock()
	s.lastFired[item.ID] = now
	s.fires++
	s.mu.Unlock()

	err := s.slot.Apply(ctx, item.Wallpaper)
	metrics.TriggerFires.WithLabelValues(item.Trigger.Kind.String(), metrics.Result(err)).Inc()
	if err != nil {
		s.mu.Lock()
		s.errs++
		s.mu.Unlock()
		s.log.Warn("scheduled apply failed", "item", item.ID, "trigger", item.Trigger.String(), "error", err)
		return
	}
	s.log.Info("schedule item fired", "item", item.ID, "trigger", item.Trigger.String(), "wallpaper", item.Wallpaper.Name)
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Running bool  `json:"running"`
	Items   int   `json:"items"`
	Passes  int64 `json:"passes"`
	Fires   int64 `json:"fires"`
	Errors  int64 `json:"errors"`
}

// Stats returns loop counters.
func (s *Scheduler) Stats() Stats {
	running := s.Running()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Running: running, Items: len(s.items), Passes: s.passes, Fires: s.fires, Errors: s.errs}
}

// ─── Schedule CRUD ──────────────────────────────────────────────────────────

// Items returns a copy of the schedule in order.
func (s *Scheduler) Items() []domain.ScheduleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScheduleItem(nil), s.items...)
}

// Item returns the item with id.
func (s *Scheduler) Item(id string) (domain.ScheduleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], nil
	}
	return domain.ScheduleItem{}, domain.ErrScheduleItemNotFound
}

// AddItem appends item, assigning an id when it has none.
func (s *Scheduler) AddItem(item domain.ScheduleItem) (domain.ScheduleItem, error) {
	if err := item.Validate(); err != nil {
		return domain.ScheduleItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(item.ID) >= 0 {
		return domain.ScheduleItem{}, fmt.Errorf("%w: duplicate schedule id %s", domain.ErrConfig, item.ID)
	}
	next := append(append([]domain.ScheduleItem(nil), s.items...), item)
	if err := s.commitLocked(next); err != nil {
		return domain.ScheduleItem{}, err
	}
	return item, nil
}

// UpdateItem replaces the item with id, keeping its position.
func (s *Scheduler) UpdateItem(id string, item domain.ScheduleItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.ID = id
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrScheduleItemNotFound
	}
	next := append([]domain.ScheduleItem(nil), s.items...)
	next[i] = item
	return s.commitLocked(next)
}

// SetEnabled toggles the item with id.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrScheduleItemNotFound
	}
	next := append([]domain.ScheduleItem(nil), s.items...)
	next[i].Enabled = enabled
	return s.commitLocked(next)
}

// RemoveItem deletes the item with id.
func (s *Scheduler) RemoveItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ErrScheduleItemNotFound
	}
	next := make([]domain.ScheduleItem, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.commitLocked(next); err != nil {
		return err
	}
	delete(s.lastFired, id)
	return nil
}

// Replace swaps the whole schedule, as for an import.
func (s *Scheduler) Replace(items []domain.ScheduleItem) error {
	seen := make(map[string]bool, len(items))
	next := make([]domain.ScheduleItem, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate schedule id %s", domain.ErrConfig, item.ID)
		}
		seen[item.ID] = true
		next[i] = item
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitLocked(next); err != nil {
		return err
	}
	s.lastFired = make(map[string]time.Time)
	return nil
}

// commitLocked persists next and only then installs it.
func (s *Scheduler) commitLocked(next []domain.ScheduleItem) error {
	if s.store != nil {
		if err := s.store.SaveSchedule(next); err != nil {
			return fmt.Errorf("save schedule: %w", err)
		}
	}
	s.items = next
	return nil
}

func (s *Scheduler) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
