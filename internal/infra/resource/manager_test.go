package resource

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-desk/aether/internal/domain"
)

const kb = 1024

func smallLimits() domain.ResourceLimits {
	return domain.ResourceLimits{
		MaxMemory:    1024 * kb,
		MaxCPU:       80,
		MaxGPUMemory: 512 * kb,
		MaxProcesses: 2,
	}
}

func TestManager_RegisterUnregisterRoundTrip(t *testing.T) {
	m := NewManager(smallLimits())
	before := m.Usage()

	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 100 * kb, GPUMemoryUsed: 50 * kb, CPUUsage: 5}))
	assert.Equal(t, uint64(100*kb), m.Usage().MemoryUsed)
	assert.Equal(t, 1, m.Usage().ActiveProcesses)

	got, err := m.Unregister("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(100*kb), got.MemoryUsed)
	assert.Equal(t, before, m.Usage())
}

func TestManager_RejectionLeavesStateUnchanged(t *testing.T) {
	m := NewManager(smallLimits())

	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 512 * kb, GPUMemoryUsed: 256 * kb}))
	snapshot := m.Usage()
	entries := m.Entries()

	err := m.Register("b", domain.ResourceUsage{MemoryUsed: 768 * kb, GPUMemoryUsed: 384 * kb})
	require.Error(t, err)
	var rle *domain.ResourceLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "memory", rle.Resource)
	assert.Equal(t, uint64(1280*kb), rle.Requested)
	assert.ErrorIs(t, err, domain.ErrResourceLimit)

	assert.Equal(t, snapshot, m.Usage())
	assert.Equal(t, entries, m.Entries())
	_, ok := m.UsageOf("b")
	assert.False(t, ok)

	_, err = m.Unregister("a")
	require.NoError(t, err)
	require.NoError(t, m.Register("b", domain.ResourceUsage{MemoryUsed: 768 * kb, GPUMemoryUsed: 384 * kb}))
	assert.Equal(t, uint64(768*kb), m.Usage().MemoryUsed)
}

func TestManager_GPULimit(t *testing.T) {
	m := NewManager(smallLimits())
	err := m.Register("g", domain.ResourceUsage{MemoryUsed: 1, GPUMemoryUsed: 513 * kb})

	var rle *domain.ResourceLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "gpu_memory", rle.Resource)
	assert.Zero(t, m.Usage().MemoryUsed)
}

func TestManager_ProcessLimit(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{}))
	require.NoError(t, m.Register("b", domain.ResourceUsage{}))

	err := m.Register("c", domain.ResourceUsage{})
	var rle *domain.ResourceLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "processes", rle.Resource)
	assert.Equal(t, 2, m.Usage().ActiveProcesses)
}

func TestManager_ExactFitIsAdmitted(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("full", domain.ResourceUsage{MemoryUsed: 1024 * kb, GPUMemoryUsed: 512 * kb}))
	assert.True(t, m.WithinLimits())
}

func TestManager_DuplicateAndUnknownIDs(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 1}))

	assert.ErrorIs(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 1}), domain.ErrResourceExists)
	assert.ErrorIs(t, m.Update("zz", domain.ResourceUsage{}), domain.ErrResourceNotFound)
	_, err := m.Unregister("zz")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	assert.Equal(t, uint64(1), m.Usage().MemoryUsed)
}

func TestManager_UpdateGrowthChecked(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 256 * kb}))
	require.NoError(t, m.Register("b", domain.ResourceUsage{MemoryUsed: 256 * kb}))

	require.NoError(t, m.Update("a", domain.ResourceUsage{MemoryUsed: 768 * kb}))
	assert.Equal(t, uint64(1024*kb), m.Usage().MemoryUsed)

	before := m.Usage()
	err := m.Update("b", domain.ResourceUsage{MemoryUsed: 257 * kb})
	assert.ErrorIs(t, err, domain.ErrResourceLimit)
	assert.Equal(t, before, m.Usage())
	u, _ := m.UsageOf("b")
	assert.Equal(t, uint64(256*kb), u.MemoryUsed)
}

func TestManager_UpdateShrinkSaturates(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 100, GPUMemoryUsed: 100, CPUUsage: 10}))

	// Force the aggregate below the entry's own share, then shrink the entry.
	m.aggMu.Lock()
	m.aggregate.MemoryUsed = 10
	m.aggMu.Unlock()

	require.NoError(t, m.Update("a", domain.ResourceUsage{MemoryUsed: 0, GPUMemoryUsed: 0, CPUUsage: 0}))
	agg := m.Usage()
	assert.Zero(t, agg.MemoryUsed)
	assert.Zero(t, agg.GPUMemoryUsed)
	assert.Zero(t, agg.CPUUsage)
	assert.Equal(t, 1, agg.ActiveProcesses, "process count is fixed at registration")
}

// sumEntries adds up every registered entry for invariant checks.
func sumEntries(m *Manager) domain.ResourceUsage {
	m.mapMu.RLock()
	defer m.mapMu.RUnlock()
	var sum domain.ResourceUsage
	for _, u := range m.entries {
		sum.MemoryUsed += u.MemoryUsed
		sum.GPUMemoryUsed += u.GPUMemoryUsed
		sum.CPUUsage += u.CPUUsage
		sum.ActiveProcesses += u.ActiveProcesses
	}
	return sum
}

func TestManager_NegativeCPUUpdateKeepsAggregate(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{CPUUsage: 10}))
	require.NoError(t, m.Register("b", domain.ResourceUsage{CPUUsage: 10}))

	require.NoError(t, m.Update("a", domain.ResourceUsage{CPUUsage: -5}))
	u, _ := m.UsageOf("a")
	assert.Zero(t, u.CPUUsage)
	assert.Equal(t, sumEntries(m), m.Usage())
	assert.InDelta(t, 10, m.Usage().CPUUsage, 1e-9)
}

func TestManager_HugeUsageRejected(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 512 * kb}))
	before := m.Usage()

	err := m.Register("huge", domain.ResourceUsage{MemoryUsed: math.MaxUint64 - 1000})
	var limitErr *domain.ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "memory", limitErr.Resource)
	assert.Equal(t, before, m.Usage())

	err = m.Register("huge_gpu", domain.ResourceUsage{GPUMemoryUsed: math.MaxUint64})
	assert.ErrorIs(t, err, domain.ErrResourceLimit)

	err = m.Update("a", domain.ResourceUsage{MemoryUsed: math.MaxUint64})
	assert.ErrorIs(t, err, domain.ErrResourceLimit)
	err = m.Update("a", domain.ResourceUsage{MemoryUsed: 512 * kb, GPUMemoryUsed: math.MaxUint64})
	assert.ErrorIs(t, err, domain.ErrResourceLimit)
	assert.Equal(t, before, m.Usage())
	assert.Equal(t, sumEntries(m), m.Usage())
}

func TestManager_Counters(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 300}))
	require.NoError(t, m.Update("a", domain.ResourceUsage{MemoryUsed: 500}))
	require.NoError(t, m.Update("a", domain.ResourceUsage{MemoryUsed: 200}))

	allocated, freed := m.Counters()
	assert.Equal(t, uint64(500), allocated)
	assert.Equal(t, uint64(300), freed)
	assert.Equal(t, allocated-freed, m.Usage().MemoryUsed)

	_, err := m.Unregister("a")
	require.NoError(t, err)
	allocated, freed = m.Counters()
	assert.Equal(t, allocated, freed)
}

func TestManager_Utilization(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("a", domain.ResourceUsage{MemoryUsed: 512 * kb, GPUMemoryUsed: 128 * kb, CPUUsage: 40}))

	u := m.Utilization()
	assert.InDelta(t, 50.0, u.Memory, 0.001)
	assert.InDelta(t, 25.0, u.GPUMemory, 0.001)
	assert.InDelta(t, 50.0, u.CPU, 0.001)

	// CPU is advisory: a register over the CPU limit is still admitted.
	require.NoError(t, m.Register("b", domain.ResourceUsage{CPUUsage: 60}))
	assert.Equal(t, 100.0, m.Utilization().CPU)
	assert.False(t, m.WithinLimits())
}

func TestManager_UtilizationZeroLimit(t *testing.T) {
	m := NewManager(domain.ResourceLimits{MaxProcesses: 1})
	assert.Zero(t, m.Utilization().Memory)
}

func TestManager_GarbageCollect(t *testing.T) {
	m := NewManager(smallLimits())
	require.NoError(t, m.Register("live", domain.ResourceUsage{MemoryUsed: 10}))
	require.NoError(t, m.Register("dead", domain.ResourceUsage{MemoryUsed: 20}))

	n := m.GarbageCollect(func(id string) bool { return id == "live" })
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(10), m.Usage().MemoryUsed)
	assert.Equal(t, 1, m.Usage().ActiveProcesses)
	_, ok := m.UsageOf("dead")
	assert.False(t, ok)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(domain.ResourceLimits{MaxMemory: 1 << 30, MaxGPUMemory: 1 << 30, MaxCPU: 100, MaxProcesses: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("w%d", i)
			if err := m.Register(id, domain.ResourceUsage{MemoryUsed: 1024}); err != nil {
				t.Errorf("Register(%s) error: %v", id, err)
				return
			}
			_ = m.Update(id, domain.ResourceUsage{MemoryUsed: 2048})
			_ = m.Utilization()
			_ = m.Entries()
			if _, err := m.Unregister(id); err != nil {
				t.Errorf("Unregister(%s) error: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, domain.ResourceUsage{}, m.Usage())
	allocated, freed := m.Counters()
	assert.Equal(t, allocated, freed)
}
