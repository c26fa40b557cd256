package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

// RotationConfig cycles static images from a folder.
type RotationConfig struct {
	Enabled  bool
	Interval time.Duration
	Folder   string
}

var rotationExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

// Rotation picks the next image from a folder, cycling in name order.
// The folder is re-read on every pick so added and removed files are seen.
type Rotation struct {
	cfg RotationConfig

	mu   sync.Mutex
	last string
	at   time.Time
}

// NewRotation creates a rotation. It never fires when cfg is disabled.
func NewRotation(cfg RotationConfig) *Rotation {
	return &Rotation{cfg: cfg}
}

// Due reports whether the interval has passed since the last pick.
func (r *Rotation) Due(now time.Time) bool {
	if r == nil || !r.cfg.Enabled || r.cfg.Interval <= 0 || r.cfg.Folder == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.at.IsZero() || now.Sub(r.at) >= r.cfg.Interval
}

// Next returns a spec for the image after the last one picked and marks
// the rotation as having fired at now.
func (r *Rotation) Next(now time.Time) (domain.WallpaperSpec, error) {
	images, err := listImages(r.cfg.Folder)
	if err != nil {
		return domain.WallpaperSpec{}, err
	}
	if len(images) == 0 {
		return domain.WallpaperSpec{}, fmt.Errorf("%w: no images in %s", domain.ErrWallpaper, r.cfg.Folder)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = now

	i := sort.SearchStrings(images, r.last)
	if i < len(images) && images[i] == r.last {
		i++
	}
	next := images[i%len(images)]
	r.last = next
	return domain.WallpaperSpec{
		Name: strings.TrimSuffix(filepath.Base(next), filepath.Ext(next)),
		Type: domain.WallpaperStatic,
		Path: next,
	}, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read rotation folder: %v", domain.ErrConfig, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !rotationExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
