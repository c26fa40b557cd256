package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aether-desk/aether/internal/domain"
)

// Darwin sets images through System Events. It has no clear command.
type Darwin struct {
	base
}

// NewDarwin creates the macOS strategy.
func NewDarwin(o Options) *Darwin {
	return &Darwin{base: newBase(o)}
}

func (d *Darwin) Name() string { return "darwin" }

// DesktopWindow is absent; players run fullscreen.
func (d *Darwin) DesktopWindow() (Window, bool) { return 0, false }

func (d *Darwin) SetStatic(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`tell application "System Events" to tell every desktop to set picture to "%s"`,
		strings.ReplaceAll(abs, `"`, `\"`))
	if err := d.runChain(ctx, "set static wallpaper", []step{d.cmd("osascript", "-e", script)}); err != nil {
		return err
	}
	d.setCurrent(abs)
	return nil
}

func (d *Darwin) Clear(context.Context) error {
	return domain.NotImplemented("clearing the wallpaper on macOS")
}

func (d *Darwin) Stop(ctx context.Context) error { return d.Clear(ctx) }

func (d *Darwin) Tools() []string { return []string{"osascript"} }

func (d *Darwin) VideoLaunch(path string, embed Window) (Launch, error) {
	args := mpvArgs(path, embed, false)
	return Launch{
		Candidates: []Command{
			{Name: "mpv", Args: args},
			{Name: "/opt/homebrew/bin/mpv", Args: args},
			{Name: "/usr/local/bin/mpv", Args: args},
		},
		Discover: []string{"mpv"},
		Needle:   path,
	}, nil
}

func (d *Darwin) WebLaunch(url string) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "open", Args: []string{"-na", "Google Chrome", "--args", "--new-window", url}},
			{Name: "open", Args: []string{url}},
		},
		Discover: []string{"Google Chrome", "chrome", "firefox", "Safari"},
		Needle:   url,
	}, nil
}

func (d *Darwin) ShaderLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{{Name: "glslViewer", Args: []string{path}}},
		Discover:   shaderDiscover,
		Needle:     path,
	}, nil
}

func (d *Darwin) AudioLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{{Name: "glslViewer", Args: []string{path, "--audio"}}},
		Discover:   audioDiscover,
		Needle:     path,
	}, nil
}
