package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/health"
	"github.com/aether-desk/aether/internal/infra/scheduler"
)

// ─── Response Types ─────────────────────────────────────────────────────────

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Platform  string                  `json:"platform"`
	Active    *domain.ActiveWallpaper `json:"active,omitempty"`
	Scheduler scheduler.Stats         `json:"scheduler"`
	Usage     domain.ResourceUsage    `json:"usage"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Healthy bool            `json:"healthy"`
	Checks  []health.Status `json:"checks"`
}

// PlatformResponse is returned by GET /api/platform.
type PlatformResponse struct {
	Name    string   `json:"name"`
	Tools   []string `json:"tools"`
	Current string   `json:"current,omitempty"`
}

// ResourcesResponse is returned by GET /api/resources.
type ResourcesResponse struct {
	Usage        domain.ResourceUsage            `json:"usage"`
	Limits       domain.ResourceLimits           `json:"limits"`
	Utilization  domain.Utilization              `json:"utilization"`
	WithinLimits bool                            `json:"within_limits"`
	Allocated    uint64                          `json:"allocated"`
	Freed        uint64                          `json:"freed"`
	Entries      map[string]domain.ResourceUsage `json:"entries"`
}

// ─── Status ─────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Platform:  s.platform.Name(),
		Scheduler: s.sched.Stats(),
		Usage:     s.resources.Usage(),
	}
	if a, ok := s.sched.Slot().Active(); ok {
		resp.Active = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Healthy: true, Checks: []health.Status{}})
		return
	}
	resp := HealthResponse{Healthy: s.health.IsHealthy(), Checks: s.health.Statuses()}
	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PlatformResponse{
		Name:    s.platform.Name(),
		Tools:   s.platform.Tools(),
		Current: s.platform.Current(),
	})
}

// ─── Wallpaper ──────────────────────────────────────────────────────────────

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	a, ok := s.sched.Slot().Active()
	if !ok {
		writeDomainError(w, domain.ErrNoActiveWallpaper)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var spec domain.WallpaperSpec
	if !decode(w, r, &spec) {
		return
	}
	if err := s.sched.Slot().Apply(r.Context(), spec); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleActive(w, r)
}

func (s *Server) slotAction(fn func(*scheduler.Slot, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(s.sched.Slot(), r); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.slotAction(func(sl *scheduler.Slot, r *http.Request) error { return sl.StopActive(r.Context()) })(w, r)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.slotAction(func(sl *scheduler.Slot, r *http.Request) error { return sl.PauseActive(r.Context()) })(w, r)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.slotAction(func(sl *scheduler.Slot, r *http.Request) error { return sl.ResumeActive(r.Context()) })(w, r)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.slotAction(func(sl *scheduler.Slot, r *http.Request) error { return sl.ClearDesktop(r.Context()) })(w, r)
}

// ─── Schedule ───────────────────────────────────────────────────────────────

func (s *Server) handleListSchedule(w http.ResponseWriter, r *http.Request) {
	items := s.sched.Items()
	if items == nil {
		items = []domain.ScheduleItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	item, err := s.sched.Item(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAddSchedule(w http.ResponseWriter, r *http.Request) {
	var item domain.ScheduleItem
	if !decode(w, r, &item) {
		return
	}
	added, err := s.sched.AddItem(item)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	var items []domain.ScheduleItem
	if !decode(w, r, &items) {
		return
	}
	if err := s.sched.Replace(items); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleListSchedule(w, r)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var item domain.ScheduleItem
	if !decode(w, r, &item) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.sched.UpdateItem(id, item); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleGetSchedule(w, r)
}

func (s *Server) handleRemoveSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.RemoveItem(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sched.SetEnabled(chi.URLParam(r, "id"), enabled); err != nil {
			writeDomainError(w, err)
			return
		}
		s.handleGetSchedule(w, r)
	}
}

// ─── Resources ──────────────────────────────────────────────────────────────

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	allocated, freed := s.resources.Counters()
	writeJSON(w, http.StatusOK, ResourcesResponse{
		Usage:        s.resources.Usage(),
		Limits:       s.resources.Limits(),
		Utilization:  s.resources.Utilization(),
		WithinLimits: s.resources.WithinLimits(),
		Allocated:    allocated,
		Freed:        freed,
		Entries:      s.resources.Entries(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var u domain.ResourceUsage
	if !decode(w, r, &u) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.resources.Register(id, u); err != nil {
		writeDomainError(w, err)
		return
	}
	got, _ := s.resources.UsageOf(id)
	writeJSON(w, http.StatusCreated, got)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	var u domain.ResourceUsage
	if !decode(w, r, &u) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.resources.Update(id, u); err != nil {
		writeDomainError(w, err)
		return
	}
	got, _ := s.resources.UsageOf(id)
	writeJSON(w, http.StatusOK, got)
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	last, err := s.resources.Unregister(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, last)
}
