package platform

import (
	"context"
	"path/filepath"
)

// Linux drives generic X11/GNOME/XFCE desktops through their CLI tools.
type Linux struct {
	base
	desktopEnv string
}

// NewLinux creates the generic Linux strategy for the given desktop name.
func NewLinux(desktopEnv string, o Options) *Linux {
	return &Linux{base: newBase(o), desktopEnv: desktopEnv}
}

func (l *Linux) Name() string { return "linux" }

// DesktopEnv is the desktop name Detect found.
func (l *Linux) DesktopEnv() string { return l.desktopEnv }

func (l *Linux) staticChain(path string) []step {
	return []step{
		l.cmd("gsettings", "set", "org.gnome.desktop.background", "picture-uri", "file://"+path),
		l.cmd("feh", "--bg-fill", path),
		l.cmd("nitrogen", "--set-zoom-fill", path),
		l.cmd("xfconf-query", "-c", "xfce4-desktop", "-p", "/backdrop/screen0/monitor0/image-path", "-s", path),
	}
}

func (l *Linux) clearChain() []step {
	return []step{
		l.cmd("gsettings", "set", "org.gnome.desktop.background", "picture-uri", ""),
		l.cmd("feh", "--bg-fill", "--no-fehbg"),
		l.cmd("nitrogen", "--restore"),
	}
}

func (l *Linux) SetStatic(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := l.runChain(ctx, "set static wallpaper", l.staticChain(abs)); err != nil {
		return err
	}
	l.setCurrent(abs)
	return nil
}

func (l *Linux) Clear(ctx context.Context) error {
	if err := l.runChain(ctx, "clear wallpaper", l.clearChain()); err != nil {
		return err
	}
	l.setCurrent("")
	return nil
}

func (l *Linux) Stop(ctx context.Context) error { return l.Clear(ctx) }

func (l *Linux) Tools() []string { return toolNames(l.staticChain("")) }

func (l *Linux) VideoLaunch(path string, embed Window) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "mpv", Args: mpvArgs(path, embed, false)},
			vlcCommand(path),
		},
		Discover: videoDiscover,
		Needle:   path,
	}, nil
}

func (l *Linux) WebLaunch(url string) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "firefox", Args: []string{"--new-window", url}},
			{Name: "chromium", Args: []string{"--new-window", url}},
			{Name: "google-chrome", Args: []string{"--new-window", url}},
		},
		Discover: []string{"firefox", "chrome", "chromium", "google-chrome"},
		Needle:   url,
	}, nil
}

func (l *Linux) ShaderLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "shadertoy", Args: []string{path}},
			{Name: "glslViewer", Args: []string{path}},
		},
		Discover: shaderDiscover,
		Needle:   path,
	}, nil
}

func (l *Linux) AudioLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "shadertoy", Args: []string{"--audio", path}},
			{Name: "glslViewer", Args: []string{path, "--audio"}},
		},
		Discover: audioDiscover,
		Needle:   path,
	}, nil
}
