// Package metrics provides Prometheus metrics for aether: the active slot,
// backend lifecycle, scheduler passes, fallback chains, process control,
// resource accounting and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Slot & Backends ────────────────────────────────────────────────────────

// ActiveWallpaper is 1 for the type currently in the slot, 0 otherwise.
var ActiveWallpaper = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "active_wallpaper",
	Help:      "1 for the wallpaper type currently in the slot.",
}, []string{"type"})

// BackendOps counts backend lifecycle calls by type, operation and result.
var BackendOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "backend_operations_total",
	Help:      "Backend start/stop/pause/resume calls by result.",
}, []string{"type", "op", "result"})

// BackendStartLatency tracks how long backend starts take.
var BackendStartLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "aether",
	Name:      "backend_start_seconds",
	Help:      "Backend start duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
}, []string{"type"})

// ─── Scheduler ──────────────────────────────────────────────────────────────

// SchedulerPasses counts evaluation passes.
var SchedulerPasses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "scheduler_passes_total",
	Help:      "Total schedule evaluation passes.",
})

// TriggerFires counts schedule items that fired, by trigger kind and result.
var TriggerFires = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "trigger_fires_total",
	Help:      "Schedule items fired by trigger kind and apply result.",
}, []string{"kind", "result"})

// ─── Platform ───────────────────────────────────────────────────────────────

// ChainAttempts counts fallback chain steps by tool and result.
var ChainAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "chain_attempts_total",
	Help:      "Fallback chain steps tried, by tool and result.",
}, []string{"tool", "result"})

// ─── Process Control ────────────────────────────────────────────────────────

// ProcessControl counts suspend/resume/minimize/restore attempts.
var ProcessControl = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "process_control_total",
	Help:      "Process control operations by result.",
}, []string{"op", "result"})

// Discoveries counts post-hoc PID discovery scans.
var Discoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "process_discoveries_total",
	Help:      "Process table scans by result (found, missing, error).",
}, []string{"result"})

// ─── Resources ──────────────────────────────────────────────────────────────

// ResourceMemory tracks aggregate accounted memory in bytes.
var ResourceMemory = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "resource_memory_bytes",
	Help:      "Aggregate accounted memory in bytes.",
})

// ResourceGPUMemory tracks aggregate accounted GPU memory in bytes.
var ResourceGPUMemory = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "resource_gpu_memory_bytes",
	Help:      "Aggregate accounted GPU memory in bytes.",
})

// ResourceCPU tracks aggregate accounted CPU percentage.
var ResourceCPU = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "resource_cpu_percent",
	Help:      "Aggregate accounted CPU usage percentage.",
})

// ResourceProcesses tracks registered helper processes.
var ResourceProcesses = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "resource_processes",
	Help:      "Number of registered resource consumers.",
})

// ResourceRejections counts register/update calls refused by a limit.
var ResourceRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aether",
	Name:      "resource_rejections_total",
	Help:      "Register/update calls rejected, by exceeded resource.",
}, []string{"resource"})

// ─── Power ──────────────────────────────────────────────────────────────────

// PowerPaused is 1 while the governor holds the wallpaper paused.
var PowerPaused = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "power_paused",
	Help:      "1 while the power governor holds playback paused.",
})

// IdleLevel tracks the current idle level (0=Active, 1=Light, 2=Deep, 3=Locked, 4=Server).
var IdleLevel = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "idle_level",
	Help:      "Current idle level (0=Active, 1=Light, 2=Deep, 3=Locked, 4=Server).",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "aether",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
