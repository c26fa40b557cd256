package platform

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aether-desk/aether/internal/domain"
)

// Hyprland sets images through hyprpaper, falling back to swww. Helper
// wallpapers are not supported on this compositor.
type Hyprland struct {
	base
}

// NewHyprland creates the Hyprland strategy.
func NewHyprland(o Options) *Hyprland {
	return &Hyprland{base: newBase(o)}
}

func (h *Hyprland) Name() string { return "hyprland" }

// DesktopWindow is always absent: there is no X11 root to draw on.
func (h *Hyprland) DesktopWindow() (Window, bool) { return 0, false }

func (h *Hyprland) staticChain(path string) []step {
	return []step{
		{tool: "hyprctl", run: func(ctx context.Context) ([]byte, error) {
			return h.hyprpaper(ctx, path)
		}},
		h.cmd("swww", "img", path),
	}
}

// hyprpaper preloads path and assigns it to every monitor.
func (h *Hyprland) hyprpaper(ctx context.Context, path string) ([]byte, error) {
	out, err := h.runner.Run(ctx, "hyprctl", "monitors")
	if err != nil {
		return out, err
	}
	monitors := parseMonitors(string(out))
	if len(monitors) == 0 {
		return out, fmt.Errorf("no monitors detected")
	}
	if out, err := h.runner.Run(ctx, "hyprctl", "hyprpaper", "preload", path); err != nil {
		return out, err
	}
	for _, mon := range monitors {
		if out, err := h.runner.Run(ctx, "hyprctl", "hyprpaper", "wallpaper", mon+","+path); err != nil {
			return out, fmt.Errorf("monitor %s: %w", mon, err)
		}
	}
	return nil, nil
}

// parseMonitors extracts names from lines like
// "Monitor eDP-1 (ID 0):".
func parseMonitors(out string) []string {
	var names []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "Monitor ")
		if !ok || !strings.Contains(rest, "(") {
			continue
		}
		name, _, _ := strings.Cut(rest, " ")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (h *Hyprland) SetStatic(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := h.runChain(ctx, "set static wallpaper", h.staticChain(abs)); err != nil {
		return err
	}
	h.setCurrent(abs)
	return nil
}

func (h *Hyprland) Clear(ctx context.Context) error {
	if err := h.runChain(ctx, "clear wallpaper", []step{h.cmd("hyprctl", "hyprpaper", "unload", "all")}); err != nil {
		return err
	}
	h.setCurrent("")
	return nil
}

func (h *Hyprland) Stop(ctx context.Context) error { return h.Clear(ctx) }

func (h *Hyprland) Tools() []string { return []string{"hyprctl", "swww"} }

func (h *Hyprland) VideoLaunch(string, Window) (Launch, error) {
	return Launch{}, domain.NotImplemented("video wallpapers on hyprland")
}

func (h *Hyprland) WebLaunch(string) (Launch, error) {
	return Launch{}, domain.NotImplemented("web wallpapers on hyprland")
}

func (h *Hyprland) ShaderLaunch(string) (Launch, error) {
	return Launch{}, domain.NotImplemented("shader wallpapers on hyprland")
}

func (h *Hyprland) AudioLaunch(string) (Launch, error) {
	return Launch{}, domain.NotImplemented("audio wallpapers on hyprland")
}
