package resource

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/aether-desk/aether/internal/domain"
)

// ProcessStats reads live figures for a PID.
type ProcessStats interface {
	// Sample returns resident memory in bytes and CPU percent.
	Sample(pid int) (rss uint64, cpu float64, err error)
	Alive(pid int) bool
}

// GopsutilStats reads process figures through gopsutil.
type GopsutilStats struct{}

// Sample implements ProcessStats.
func (GopsutilStats) Sample(pid int) (uint64, float64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return mem.RSS, 0, nil
	}
	return mem.RSS, cpu, nil
}

// Alive implements ProcessStats.
func (GopsutilStats) Alive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// Sampler refreshes registered usage from the processes that own it.
// Entries whose process has exited are reclaimed.
type Sampler struct {
	manager  *Manager
	stats    ProcessStats
	pids     func() map[string]int
	interval time.Duration
	log      *slog.Logger
}

// NewSampler creates a sampler. pids maps resource ids to their owning PID;
// ids missing from it are left alone.
func NewSampler(m *Manager, stats ProcessStats, pids func() map[string]int, interval time.Duration, log *slog.Logger) *Sampler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Sampler{manager: m, stats: stats, pids: pids, interval: interval, log: log}
}

// Run samples until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SampleOnce()
		}
	}
}

// SampleOnce performs one refresh pass.
func (s *Sampler) SampleOnce() {
	owners := s.pids()

	dropped := s.manager.GarbageCollect(func(id string) bool {
		pid, tracked := owners[id]
		return !tracked || pid <= 0 || s.stats.Alive(pid)
	})
	if dropped > 0 {
		s.log.Info("reclaimed usage of exited helpers", "count", dropped)
	}

	for id, pid := range owners {
		if pid <= 0 {
			continue
		}
		cur, ok := s.manager.UsageOf(id)
		if !ok {
			continue
		}
		rss, cpu, err := s.stats.Sample(pid)
		if err != nil {
			s.log.Debug("sample failed", "id", id, "pid", pid, "error", err)
			continue
		}
		next := domain.ResourceUsage{
			MemoryUsed:      rss,
			CPUUsage:        cpu,
			GPUMemoryUsed:   cur.GPUMemoryUsed,
			ActiveProcesses: cur.ActiveProcesses,
		}
		if err := s.manager.Update(id, next); err != nil {
			if errors.Is(err, domain.ErrResourceLimit) {
				s.log.Warn("helper exceeds resource limit", "id", id, "pid", pid, "error", err)
			}
			continue
		}
	}
}
