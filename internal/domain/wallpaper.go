// Package domain holds the pure types of the wallpaper core: specs,
// schedule items, triggers, resource accounting and the error taxonomy.
// Nothing in here touches the OS.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// WallpaperType is the closed set of things that can be painted on the desktop.
type WallpaperType int

const (
	WallpaperStatic WallpaperType = iota
	WallpaperVideo
	WallpaperWeb
	WallpaperShader
	WallpaperAudio
)

// WallpaperTypes lists every type in declaration order.
var WallpaperTypes = []WallpaperType{
	WallpaperStatic, WallpaperVideo, WallpaperWeb, WallpaperShader, WallpaperAudio,
}

// String returns the lowercase wire name of the type.
func (t WallpaperType) String() string {
	switch t {
	case WallpaperStatic:
		return "static"
	case WallpaperVideo:
		return "video"
	case WallpaperWeb:
		return "web"
	case WallpaperShader:
		return "shader"
	case WallpaperAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseWallpaperType is the inverse of String. Matching is case-insensitive.
func ParseWallpaperType(s string) (WallpaperType, error) {
	for _, t := range WallpaperTypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown wallpaper type %q", ErrWallpaper, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t WallpaperType) MarshalText() ([]byte, error) {
	if t < WallpaperStatic || t > WallpaperAudio {
		return nil, fmt.Errorf("%w: invalid wallpaper type %d", ErrWallpaper, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *WallpaperType) UnmarshalText(b []byte) error {
	v, err := ParseWallpaperType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UsesPath reports whether the type is backed by a local asset file.
// Only Web is URL-backed.
func (t WallpaperType) UsesPath() bool {
	return t != WallpaperWeb
}

// RunsHelper reports whether the type needs a long-running helper process.
func (t WallpaperType) RunsHelper() bool {
	return t != WallpaperStatic
}

// WallpaperSpec describes one wallpaper as authored by the user.
type WallpaperSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Author      string        `json:"author,omitempty"`
	Version     string        `json:"version,omitempty"`
	Type        WallpaperType `json:"type"`
	Path        string        `json:"path,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Validate enforces the path/url pairing for the spec's type:
// asset-backed types need a path and no url, Web needs a url and no path.
func (s WallpaperSpec) Validate() error {
	if s.Type < WallpaperStatic || s.Type > WallpaperAudio {
		return fmt.Errorf("%w: invalid wallpaper type %d", ErrWallpaper, int(s.Type))
	}
	if s.Type.UsesPath() {
		if s.Path == "" {
			return fmt.Errorf("%w: %s wallpaper requires a path", ErrWallpaper, s.Type)
		}
		if s.URL != "" {
			return fmt.Errorf("%w: %s wallpaper must not set a url", ErrWallpaper, s.Type)
		}
		return nil
	}
	if s.URL == "" {
		return fmt.Errorf("%w: web wallpaper requires a url", ErrWallpaper)
	}
	if s.Path != "" {
		return fmt.Errorf("%w: web wallpaper must not set a path", ErrWallpaper)
	}
	return nil
}

// Target returns the path or url the spec points at.
func (s WallpaperSpec) Target() string {
	if s.Type == WallpaperWeb {
		return s.URL
	}
	return s.Path
}

// ActiveWallpaper is a read-only snapshot of the slot's current occupant.
type ActiveWallpaper struct {
	Spec      WallpaperSpec `json:"spec"`
	PID       int           `json:"pid,omitempty"`
	Paused    bool          `json:"paused"`
	StartedAt time.Time     `json:"started_at"`
}
