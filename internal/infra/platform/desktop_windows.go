package platform

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	msgSpawnWorkerW = 0x052C
	smtoNormal      = 0x0000
	gwHwndNext      = 2
)

// Callbacks are a finite resource on Windows; create the enumerator once.
var (
	enumMu       sync.Mutex
	enumFound    uintptr
	enumDefView  = mustUTF16("SHELLDLL_DefView")
	enumCallback = windows.NewCallback(enumWorkerW)
)

func enumWorkerW(hwnd uintptr, _ uintptr) uintptr {
	shell, _, _ := procFindWindowExW.Call(hwnd, 0, uintptr(unsafe.Pointer(enumDefView)), 0)
	if shell == 0 {
		return 1
	}
	next, _, _ := procGetWindow.Call(hwnd, gwHwndNext)
	if next == 0 {
		return 1
	}
	enumFound = next
	return 0
}

// hostDesktopWindow finds the WorkerW that sits behind the desktop icons,
// asking Progman to create it first. Progman itself is the last resort.
func hostDesktopWindow() (Window, bool) {
	progman := findWindow("Progman")
	if progman == 0 {
		return 0, false
	}

	var result uintptr
	procSendMessageTimeoutW.Call(progman, msgSpawnWorkerW, 0, 0, smtoNormal, 1000, uintptr(unsafe.Pointer(&result)))
	time.Sleep(100 * time.Millisecond)

	enumMu.Lock()
	enumFound = 0
	procEnumWindows.Call(enumCallback, 0)
	workerw := enumFound
	enumMu.Unlock()

	if workerw != 0 {
		return Window(workerw), true
	}
	if w := findWindow("WorkerW"); w != 0 {
		return Window(w), true
	}
	return Window(progman), true
}

func findWindow(class string) uintptr {
	hwnd, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(mustUTF16(class))), 0)
	return hwnd
}

func mustUTF16(s string) *uint16 {
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}
