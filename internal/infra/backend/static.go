package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

// Static is an image applied through the platform's fallback chain.
type Static struct {
	deps Deps
	log  *slog.Logger
	path string
}

func (s *Static) Type() domain.WallpaperType { return domain.WallpaperStatic }
func (s *Static) Path() string               { return s.path }

func (s *Static) Check(context.Context) error { return checkAsset(s.path) }

func (s *Static) Start(ctx context.Context) error {
	began := time.Now()
	err := s.deps.Platform.SetStatic(ctx, s.path)
	observeStart(domain.WallpaperStatic, began, err)
	return err
}

// Stop resets the desktop through the platform's clear chain.
func (s *Static) Stop(ctx context.Context) error {
	err := s.deps.Platform.Stop(ctx)
	observe(domain.WallpaperStatic, "stop", err)
	return err
}

// Pause and Resume have nothing to do for an image.
func (s *Static) Pause(context.Context) error  { return nil }
func (s *Static) Resume(context.Context) error { return nil }
