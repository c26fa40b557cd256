package platform

import (
	"os"

	"github.com/BurntSushi/xgbutil"
)

// hostDesktopWindow returns the X11 root window. Without an X display
// (pure Wayland, headless) there is nothing to embed into.
func hostDesktopWindow() (Window, bool) {
	if os.Getenv("DISPLAY") == "" {
		return 0, false
	}
	xu, err := xgbutil.NewConn()
	if err != nil {
		return 0, false
	}
	defer xu.Conn().Close()
	return Window(xu.RootWin()), true
}
