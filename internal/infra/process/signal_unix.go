//go:build !windows

package process

import "golang.org/x/sys/unix"

// OSSignals controls processes with SIGSTOP, SIGCONT and SIGTERM.
type OSSignals struct{}

func (OSSignals) Suspend(pid int) error   { return unix.Kill(pid, unix.SIGSTOP) }
func (OSSignals) Resume(pid int) error    { return unix.Kill(pid, unix.SIGCONT) }
func (OSSignals) Terminate(pid int) error { return unix.Kill(pid, unix.SIGTERM) }
