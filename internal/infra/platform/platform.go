// Package platform puts wallpapers on the desktop. One strategy is chosen
// at startup by Detect; callers never branch on the OS themselves.
//
// Static images are applied directly through a fallback chain of desktop
// tools. Helper-backed types (video, web, shader, audio) are described as a
// Launch for the process supervisor to spawn.
package platform

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Manager is a per-OS or per-desktop wallpaper strategy.
type Manager interface {
	// Name identifies the strategy ("linux", "hyprland", "windows", "darwin").
	Name() string

	// SetStatic applies an image with the strategy's fallback chain.
	SetStatic(ctx context.Context, path string) error

	// VideoLaunch describes how to play path as a looping wallpaper. A
	// non-zero embed parents the player into that desktop-layer window.
	VideoLaunch(path string, embed Window) (Launch, error)
	WebLaunch(url string) (Launch, error)
	ShaderLaunch(path string) (Launch, error)
	AudioLaunch(path string) (Launch, error)

	// DesktopWindow returns the window a player can draw into, if any.
	DesktopWindow() (Window, bool)

	// Clear resets the desktop background with the clear chain.
	Clear(ctx context.Context) error

	// Stop undoes whatever SetStatic did. For every strategy this is Clear.
	Stop(ctx context.Context) error

	// Current is the last image applied through SetStatic, "" after Clear.
	Current() string

	// Tools lists the executables the static chain can use.
	Tools() []string
}

// Window is a native window handle: an X11 window id or a Windows HWND.
type Window uint64

// Command is one executable invocation.
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Launch is what the supervisor needs to start and later find a helper.
type Launch struct {
	// Candidates are tried in order; the first resolvable binary runs.
	Candidates []Command

	// Discover lists executable names to match during PID discovery.
	Discover []string

	// Needle must appear in the discovered process's command line.
	Needle string
}

// Options configures a strategy. Zero values select real implementations.
type Options struct {
	Runner  Runner
	Log     *slog.Logger
	Desktop func() (Window, bool)
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Desktop == nil {
		o.Desktop = hostDesktopWindow
	}
	return o
}

// base carries what every strategy shares.
type base struct {
	runner  Runner
	log     *slog.Logger
	desktop func() (Window, bool)

	mu      sync.RWMutex
	current string
}

func newBase(o Options) base {
	o = o.withDefaults()
	return base{runner: o.Runner, log: o.Log, desktop: o.Desktop}
}

func (b *base) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

func (b *base) setCurrent(path string) {
	b.mu.Lock()
	b.current = path
	b.mu.Unlock()
}

func (b *base) DesktopWindow() (Window, bool) {
	return b.desktop()
}

var (
	shaderDiscover = []string{"shadertoy", "glslViewer"}
	audioDiscover  = []string{"shadertoy", "vlc", "audacious", "glslViewer"}
	videoDiscover  = []string{"mpv", "vlc"}
)

// mpvArgs builds the player flags shared by every strategy.
func mpvArgs(path string, embed Window, ontop bool) []string {
	args := []string{
		"--loop-file=inf",
		"--no-audio",
		"--no-border",
		"--osd-level=0",
		"--quiet",
		"--no-config",
		"--no-input-default-bindings",
		"--no-input-cursor",
		"--hwdec=auto",
		"--keepaspect=no",
		"--no-terminal",
	}
	if embed != 0 {
		args = append(args, "--wid="+formatWindow(embed), "--no-keepaspect-window")
	} else {
		args = append(args, "--fs", "--no-keepaspect")
		if ontop {
			args = append(args, "--ontop")
		}
	}
	return append(args, path)
}

func vlcCommand(path string) Command {
	return Command{Name: "vlc", Args: []string{"--video-wallpaper", "--no-audio", "--loop", path}}
}
