package process

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	iconicState      = 3 // ICCCM WM_CHANGE_STATE payload
	sourceIndication = 2 // pager/direct action
)

// X11Windows minimizes and restores client windows through EWMH.
type X11Windows struct{}

// Minimize iconifies every top-level window owned by pid.
func (X11Windows) Minimize(pid int) error {
	return withClientWindows(pid, func(xu *xgbutil.XUtil, w xproto.Window) error {
		return sendClientMessage(xu, w, "WM_CHANGE_STATE", iconicState)
	})
}

// Restore activates every top-level window owned by pid.
func (X11Windows) Restore(pid int) error {
	return withClientWindows(pid, func(xu *xgbutil.XUtil, w xproto.Window) error {
		return sendClientMessage(xu, w, "_NET_ACTIVE_WINDOW", sourceIndication)
	})
}

func withClientWindows(pid int, fn func(*xgbutil.XUtil, xproto.Window) error) error {
	if os.Getenv("DISPLAY") == "" {
		return fmt.Errorf("no X display")
	}
	xu, err := xgbutil.NewConn()
	if err != nil {
		return fmt.Errorf("connect to X11: %w", err)
	}
	defer xu.Conn().Close()

	clients, err := ewmh.ClientListGet(xu)
	if err != nil {
		return fmt.Errorf("get client list: %w", err)
	}
	found := 0
	for _, w := range clients {
		owner, err := ewmh.WmPidGet(xu, w)
		if err != nil || int(owner) != pid {
			continue
		}
		if err := fn(xu, w); err != nil {
			return err
		}
		found++
	}
	if found == 0 {
		return fmt.Errorf("no window owned by pid %d", pid)
	}
	return nil
}

// sendClientMessage builds the event by hand; the ewmh request helpers
// panic on this xgbutil version.
func sendClientMessage(xu *xgbutil.XUtil, w xproto.Window, atom string, first uint32) error {
	reply, err := xproto.InternAtom(xu.Conn(), false, uint16(len(atom)), atom).Reply()
	if err != nil {
		return fmt.Errorf("intern %s: %w", atom, err)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{first, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		xu.Conn(),
		false,
		xu.RootWin(),
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
