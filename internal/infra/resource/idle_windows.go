//go:build windows

package resource

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const desktopReadObjects = 0x0001

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	getLastInputInfo = user32.NewProc("GetLastInputInfo")
	openInputDesktop = user32.NewProc("OpenInputDesktop")
	closeDesktop     = user32.NewProc("CloseDesktop")
)

// lastInput mirrors LASTINPUTINFO.
type lastInput struct {
	size uint32
	tick uint32
}

// osIdleDuration measures time since the last keyboard or mouse input.
// Both tick counts wrap at 49.7 days, so the subtraction stays in uint32.
func osIdleDuration() time.Duration {
	in := lastInput{size: uint32(unsafe.Sizeof(lastInput{}))}
	if ok, _, _ := getLastInputInfo.Call(uintptr(unsafe.Pointer(&in))); ok == 0 {
		return 0
	}
	now := uint32(windows.GetTickCount64())
	return time.Duration(now-in.tick) * time.Millisecond
}

func hasDisplay() bool { return true }

// isScreenLocked is true while the secure desktop owns input, which is
// when OpenInputDesktop refuses the calling session.
func isScreenLocked() bool {
	h, _, _ := openInputDesktop.Call(0, 0, desktopReadObjects)
	if h == 0 {
		return true
	}
	closeDesktop.Call(h)
	return false
}
