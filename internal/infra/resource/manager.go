package resource

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
)

// Manager tracks aggregate resource usage against fixed limits.
//
// Lock order is mapMu then aggMu on every path that needs both. A call
// that is rejected returns before touching either the map or the aggregate.
type Manager struct {
	mapMu   sync.RWMutex
	entries map[string]domain.ResourceUsage

	aggMu     sync.RWMutex
	aggregate domain.ResourceUsage

	limits domain.ResourceLimits

	allocated atomic.Uint64
	freed     atomic.Uint64
}

// NewManager creates a manager with the given limits.
func NewManager(limits domain.ResourceLimits) *Manager {
	return &Manager{
		entries: make(map[string]domain.ResourceUsage),
		limits:  limits,
	}
}

// Limits returns the configured limits.
func (m *Manager) Limits() domain.ResourceLimits { return m.limits }

// Register admits id with usage u. Every id counts as at least one process.
func (m *Manager) Register(id string, u domain.ResourceUsage) error {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	m.aggMu.Lock()
	defer m.aggMu.Unlock()

	if _, ok := m.entries[id]; ok {
		return fmt.Errorf("register %q: %w", id, domain.ErrResourceExists)
	}
	if u.ActiveProcesses < 1 {
		u.ActiveProcesses = 1
	}
	if u.CPUUsage < 0 {
		u.CPUUsage = 0
	}

	agg := m.aggregate
	if agg.ActiveProcesses >= m.limits.MaxProcesses {
		return m.reject(id, "processes", uint64(agg.ActiveProcesses+u.ActiveProcesses), uint64(m.limits.MaxProcesses))
	}
	if !fits(agg.MemoryUsed, u.MemoryUsed, m.limits.MaxMemory) {
		return m.reject(id, "memory", saturatingAdd(agg.MemoryUsed, u.MemoryUsed), m.limits.MaxMemory)
	}
	if !fits(agg.GPUMemoryUsed, u.GPUMemoryUsed, m.limits.MaxGPUMemory) {
		return m.reject(id, "gpu_memory", saturatingAdd(agg.GPUMemoryUsed, u.GPUMemoryUsed), m.limits.MaxGPUMemory)
	}

	m.entries[id] = u
	m.aggregate.MemoryUsed += u.MemoryUsed
	m.aggregate.GPUMemoryUsed += u.GPUMemoryUsed
	m.aggregate.CPUUsage += u.CPUUsage
	m.aggregate.ActiveProcesses += u.ActiveProcesses
	m.allocated.Add(u.MemoryUsed)

	m.publishLocked()
	return nil
}

// Update replaces the recorded usage of id. Growth is checked against the
// limits; shrinkage saturates at zero. The process count of an entry is
// fixed at registration.
func (m *Manager) Update(id string, u domain.ResourceUsage) error {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	m.aggMu.Lock()
	defer m.aggMu.Unlock()

	old, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("update %q: %w", id, domain.ErrResourceNotFound)
	}

	if u.CPUUsage < 0 {
		u.CPUUsage = 0
	}

	mem := m.aggregate.MemoryUsed
	if u.MemoryUsed > old.MemoryUsed {
		grow := u.MemoryUsed - old.MemoryUsed
		if !fits(mem, grow, m.limits.MaxMemory) {
			return m.reject(id, "memory", saturatingAdd(mem, grow), m.limits.MaxMemory)
		}
		mem += grow
	} else {
		mem = saturatingSub(mem, old.MemoryUsed-u.MemoryUsed)
	}

	gpu := m.aggregate.GPUMemoryUsed
	if u.GPUMemoryUsed > old.GPUMemoryUsed {
		grow := u.GPUMemoryUsed - old.GPUMemoryUsed
		if !fits(gpu, grow, m.limits.MaxGPUMemory) {
			return m.reject(id, "gpu_memory", saturatingAdd(gpu, grow), m.limits.MaxGPUMemory)
		}
		gpu += grow
	} else {
		gpu = saturatingSub(gpu, old.GPUMemoryUsed-u.GPUMemoryUsed)
	}

	cpu := m.aggregate.CPUUsage + (u.CPUUsage - old.CPUUsage)
	if cpu < 0 {
		cpu = 0
	}

	if u.MemoryUsed > old.MemoryUsed {
		m.allocated.Add(u.MemoryUsed - old.MemoryUsed)
	} else {
		m.freed.Add(old.MemoryUsed - u.MemoryUsed)
	}

	u.ActiveProcesses = old.ActiveProcesses
	m.entries[id] = u
	m.aggregate.MemoryUsed = mem
	m.aggregate.GPUMemoryUsed = gpu
	m.aggregate.CPUUsage = cpu

	m.publishLocked()
	return nil
}

// Unregister releases id and returns its last recorded usage.
func (m *Manager) Unregister(id string) (domain.ResourceUsage, error) {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	m.aggMu.Lock()
	defer m.aggMu.Unlock()

	u, ok := m.entries[id]
	if !ok {
		return domain.ResourceUsage{}, fmt.Errorf("unregister %q: %w", id, domain.ErrResourceNotFound)
	}
	delete(m.entries, id)
	m.releaseLocked(u)

	m.publishLocked()
	return u, nil
}

// GarbageCollect unregisters every entry for which alive returns false and
// reports how many were dropped.
func (m *Manager) GarbageCollect(alive func(id string) bool) int {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	m.aggMu.Lock()
	defer m.aggMu.Unlock()

	n := 0
	for id, u := range m.entries {
		if alive(id) {
			continue
		}
		delete(m.entries, id)
		m.releaseLocked(u)
		n++
	}
	if n > 0 {
		m.publishLocked()
	}
	return n
}

// Usage returns a snapshot of the aggregate.
func (m *Manager) Usage() domain.ResourceUsage {
	m.aggMu.RLock()
	defer m.aggMu.RUnlock()
	return m.aggregate
}

// UsageOf returns the recorded usage of id.
func (m *Manager) UsageOf(id string) (domain.ResourceUsage, bool) {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()
	u, ok := m.entries[id]
	return u, ok
}

// Entries returns a copy of the per-id map.
func (m *Manager) Entries() map[string]domain.ResourceUsage {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()
	out := make(map[string]domain.ResourceUsage, len(m.entries))
	for id, u := range m.entries {
		out[id] = u
	}
	return out
}

// Utilization returns usage over limit per dimension, capped at 100%.
func (m *Manager) Utilization() domain.Utilization {
	agg := m.Usage()
	return domain.Utilization{
		Memory:    percent(float64(agg.MemoryUsed), float64(m.limits.MaxMemory)),
		GPUMemory: percent(float64(agg.GPUMemoryUsed), float64(m.limits.MaxGPUMemory)),
		CPU:       percent(agg.CPUUsage, m.limits.MaxCPU),
	}
}

// WithinLimits reports whether the aggregate is inside every limit,
// CPU included. CPU is advisory and never blocks a register call.
func (m *Manager) WithinLimits() bool {
	agg := m.Usage()
	return agg.MemoryUsed <= m.limits.MaxMemory &&
		agg.GPUMemoryUsed <= m.limits.MaxGPUMemory &&
		agg.CPUUsage <= m.limits.MaxCPU &&
		agg.ActiveProcesses <= m.limits.MaxProcesses
}

// Counters returns total bytes allocated and freed over the manager's life.
func (m *Manager) Counters() (allocated, freed uint64) {
	return m.allocated.Load(), m.freed.Load()
}

// releaseLocked subtracts u from the aggregate. Caller holds both locks.
func (m *Manager) releaseLocked(u domain.ResourceUsage) {
	m.aggregate.MemoryUsed = saturatingSub(m.aggregate.MemoryUsed, u.MemoryUsed)
	m.aggregate.GPUMemoryUsed = saturatingSub(m.aggregate.GPUMemoryUsed, u.GPUMemoryUsed)
	m.aggregate.CPUUsage -= u.CPUUsage
	if m.aggregate.CPUUsage < 0 {
		m.aggregate.CPUUsage = 0
	}
	m.aggregate.ActiveProcesses -= u.ActiveProcesses
	if m.aggregate.ActiveProcesses < 0 {
		m.aggregate.ActiveProcesses = 0
	}
	m.freed.Add(u.MemoryUsed)
}

func (m *Manager) reject(id, resource string, requested, limit uint64) error {
	metrics.ResourceRejections.WithLabelValues(resource).Inc()
	return &domain.ResourceLimitError{ID: id, Resource: resource, Requested: requested, Limit: limit}
}

// publishLocked mirrors the aggregate into Prometheus. Caller holds aggMu.
func (m *Manager) publishLocked() {
	metrics.ResourceMemory.Set(float64(m.aggregate.MemoryUsed))
	metrics.ResourceGPUMemory.Set(float64(m.aggregate.GPUMemoryUsed))
	metrics.ResourceCPU.Set(m.aggregate.CPUUsage)
	metrics.ResourceProcesses.Set(float64(m.aggregate.ActiveProcesses))
}

// fits reports whether agg+add stays within limit without computing a
// sum that could wrap.
func fits(agg, add, limit uint64) bool {
	return add <= limit && agg <= limit-add
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func percent(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	p := v / limit * 100
	if p > 100 {
		return 100
	}
	return p
}
