package platform

import (
	"os"
	"runtime"
	"strings"
)

// Env is the slice of the process environment Detect looks at.
type Env struct {
	GOOS   string
	Getenv func(string) string
}

// HostEnv returns the real environment.
func HostEnv() Env {
	return Env{GOOS: runtime.GOOS, Getenv: os.Getenv}
}

// DesktopEnvironment names the running Linux desktop, probing
// XDG_CURRENT_DESKTOP, DESKTOP_SESSION, GNOME_DESKTOP_SESSION_ID and
// KDE_FULL_SESSION in that order.
func DesktopEnvironment(getenv func(string) string) string {
	if v := getenv("XDG_CURRENT_DESKTOP"); v != "" {
		return v
	}
	if v := getenv("DESKTOP_SESSION"); v != "" {
		return v
	}
	if getenv("GNOME_DESKTOP_SESSION_ID") != "" {
		return "GNOME"
	}
	if getenv("KDE_FULL_SESSION") != "" {
		return "KDE"
	}
	return "generic"
}

// Detect picks the strategy for env. Unknown systems get the generic
// Linux strategy, whose chains fail cleanly when the tools are absent.
func Detect(env Env, o Options) Manager {
	if env.Getenv == nil {
		env.Getenv = os.Getenv
	}
	o = o.withDefaults()

	switch env.GOOS {
	case "windows":
		return NewWindows(o, nil)
	case "darwin":
		return NewDarwin(o)
	}

	desktop := DesktopEnvironment(env.Getenv)
	if strings.Contains(strings.ToLower(desktop), "hyprland") {
		o.Log.Info("detected desktop environment", "desktop", desktop, "strategy", "hyprland")
		return NewHyprland(o)
	}
	o.Log.Info("detected desktop environment", "desktop", desktop, "strategy", "linux")
	return NewLinux(desktop, o)
}
