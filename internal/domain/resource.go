package domain

// ResourceUsage is a point-in-time measurement, either the aggregate or
// the share of one registered id.
type ResourceUsage struct {
	MemoryUsed      uint64  `json:"memory_used"`     // bytes
	CPUUsage        float64 `json:"cpu_usage"`       // percent
	GPUMemoryUsed   uint64  `json:"gpu_memory_used"` // bytes
	ActiveProcesses int     `json:"active_processes"`
}

// ResourceLimits caps the aggregate. Fixed for the life of a manager.
type ResourceLimits struct {
	MaxMemory    uint64  `json:"max_memory"`
	MaxCPU       float64 `json:"max_cpu"`
	MaxGPUMemory uint64  `json:"max_gpu_memory"`
	MaxProcesses int     `json:"max_processes"`
}

// DefaultResourceLimits returns 512MB memory, 80% CPU, 256MB GPU memory
// and ten processes.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxMemory:    512 * 1024 * 1024,
		MaxCPU:       80.0,
		MaxGPUMemory: 256 * 1024 * 1024,
		MaxProcesses: 10,
	}
}

// Utilization is usage divided by limit, in percent, each capped at 100.
type Utilization struct {
	Memory    float64 `json:"memory"`
	GPUMemory float64 `json:"gpu_memory"`
	CPU       float64 `json:"cpu"`
}

// IdleLevel classifies the user's current activity state.
type IdleLevel int

const (
	IdleActive IdleLevel = iota // User actively using computer
	IdleLight                   // Stepped away briefly (<3 min)
	IdleDeep                    // Away extended period (>15 min)
	IdleLocked                  // Screen locked
	IdleServer                  // Headless mode (no display)
)

// String returns human-readable idle level.
func (l IdleLevel) String() string {
	switch l {
	case IdleActive:
		return "active"
	case IdleLight:
		return "light"
	case IdleDeep:
		return "deep"
	case IdleLocked:
		return "locked"
	case IdleServer:
		return "server"
	default:
		return "unknown"
	}
}

// PlaybackPolicy is what the power governor wants the active wallpaper to do.
type PlaybackPolicy struct {
	Pause  bool   `json:"pause"`
	Reason string `json:"reason,omitempty"`
}
