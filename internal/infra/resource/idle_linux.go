//go:build linux

package resource

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/screensaver"
	"github.com/BurntSushi/xgb/xproto"
)

// x11Idle holds one connection for MIT-SCREEN-SAVER queries. It is
// dropped on any error and reopened on the next reading.
var x11Idle struct {
	sync.Mutex
	conn *xgb.Conn
	root xproto.Drawable
}

// osIdleDuration asks the X server for time since the last input. On
// Wayland or without the extension it falls back to the framebuffer
// mtime, and to 0 (active) when neither is available.
func osIdleDuration() time.Duration {
	if d, ok := x11IdleDuration(); ok {
		return d
	}
	info, err := os.Stat("/sys/class/graphics/fb0")
	if err != nil {
		return 0
	}
	return time.Since(info.ModTime())
}

func x11IdleDuration() (time.Duration, bool) {
	if os.Getenv("DISPLAY") == "" {
		return 0, false
	}
	x11Idle.Lock()
	defer x11Idle.Unlock()

	if x11Idle.conn == nil {
		c, err := xgb.NewConn()
		if err != nil {
			return 0, false
		}
		if err := screensaver.Init(c); err != nil {
			c.Close()
			return 0, false
		}
		x11Idle.conn = c
		x11Idle.root = xproto.Drawable(xproto.Setup(c).DefaultScreen(c).Root)
	}
	info, err := screensaver.QueryInfo(x11Idle.conn, x11Idle.root).Reply()
	if err != nil {
		x11Idle.conn.Close()
		x11Idle.conn = nil
		return 0, false
	}
	return time.Duration(info.MsSinceUserInput) * time.Millisecond, true
}

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// isScreenLocked asks logind for the session's LockedHint.
func isScreenLocked() bool {
	session := os.Getenv("XDG_SESSION_ID")
	if session == "" {
		return false
	}
	out, err := exec.Command("loginctl", "show-session", session, "-p", "LockedHint").Output()
	if err != nil {
		return false
	}
	return parseLockedHint(string(out))
}
