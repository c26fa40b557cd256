package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Taxonomy
	ErrConfig         = errors.New("config error")
	ErrPlatform       = errors.New("platform error")
	ErrWallpaper      = errors.New("wallpaper error")
	ErrResourceLimit  = errors.New("resource limit exceeded")
	ErrProcessControl = errors.New("process control failed")

	// Explicit gaps (web resume, hyprland video, ...)
	ErrNotImplemented = errors.New("not implemented")

	// Schedule errors
	ErrScheduleItemNotFound = errors.New("schedule item not found")
	ErrSchedulerRunning     = errors.New("scheduler already running")
	ErrSchedulerStopped     = errors.New("scheduler not running")

	// Resource errors
	ErrResourceExists   = errors.New("resource id already registered")
	ErrResourceNotFound = errors.New("resource id not registered")

	// Slot errors
	ErrNoActiveWallpaper = errors.New("no active wallpaper")
)

// ─── Structured Errors ──────────────────────────────────────────────────────

// PlatformError reports an exhausted fallback chain. Tool and Output come
// from the last tool that was tried.
type PlatformError struct {
	Op     string
	Tool   string
	Output string
	Err    error
}

func (e *PlatformError) Error() string {
	var b strings.Builder
	b.WriteString("platform error: ")
	b.WriteString(e.Op)
	if e.Tool != "" {
		fmt.Fprintf(&b, ": last tool %s", e.Tool)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ": %s", out)
	}
	return b.String()
}

// Unwrap exposes both the underlying failure and ErrPlatform.
func (e *PlatformError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPlatform}
	}
	return []error{ErrPlatform, e.Err}
}

// ResourceLimitError names the limit a register/update call would break.
type ResourceLimitError struct {
	ID        string
	Resource  string // "memory", "gpu_memory" or "processes"
	Requested uint64
	Limit     uint64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s for %q would reach %d (limit %d)",
		e.Resource, e.ID, e.Requested, e.Limit)
}

// Unwrap returns ErrResourceLimit.
func (e *ResourceLimitError) Unwrap() error { return ErrResourceLimit }

// NotImplemented returns an error that matches both ErrWallpaper and
// ErrNotImplemented.
func NotImplemented(what string) error {
	return fmt.Errorf("%w: %s: %w", ErrWallpaper, what, ErrNotImplemented)
}
