package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
	procFindWindowW           = user32.NewProc("FindWindowW")
	procFindWindowExW         = user32.NewProc("FindWindowExW")
	procSendMessageTimeoutW   = user32.NewProc("SendMessageTimeoutW")
	procEnumWindows           = user32.NewProc("EnumWindows")
	procGetWindow             = user32.NewProc("GetWindow")
)

const (
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02
)

// setWallpaperNative calls SystemParametersInfoW(SPI_SETDESKWALLPAPER).
func setWallpaperNative(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	if err := procSystemParametersInfoW.Find(); err != nil {
		return err
	}
	r, _, callErr := procSystemParametersInfoW.Call(
		spiSetDeskWallpaper, 0, uintptr(unsafe.Pointer(p)), spifUpdateIniFile|spifSendChange)
	if r == 0 {
		return callErr
	}
	return nil
}
