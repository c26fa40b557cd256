package process

import (
	"golang.org/x/sys/windows"
)

var (
	ntdll                = windows.NewLazySystemDLL("ntdll.dll")
	procNtSuspendProcess = ntdll.NewProc("NtSuspendProcess")
	procNtResumeProcess  = ntdll.NewProc("NtResumeProcess")
)

// OSSignals controls processes with NtSuspendProcess, NtResumeProcess and
// TerminateProcess.
type OSSignals struct{}

func (OSSignals) Suspend(pid int) error { return ntCall(procNtSuspendProcess, pid) }
func (OSSignals) Resume(pid int) error  { return ntCall(procNtResumeProcess, pid) }

func (OSSignals) Terminate(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}

func ntCall(proc *windows.LazyProc, pid int) error {
	if err := proc.Find(); err != nil {
		return err
	}
	h, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	status, _, _ := proc.Call(uintptr(h))
	if status != 0 {
		return windows.NTStatus(status)
	}
	return nil
}
