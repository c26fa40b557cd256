//go:build !linux && !windows

package platform

func hostDesktopWindow() (Window, bool) { return 0, false }
