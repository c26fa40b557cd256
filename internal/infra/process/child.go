package process

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/infra/platform"
)

// Child is a helper process started by Spawn.
type Child struct {
	cmd     *exec.Cmd
	command platform.Command
	stderr  *limitedBuffer

	done    chan struct{}
	mu      sync.Mutex
	exitErr error
}

func (c *Child) wait() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.exitErr = err
	c.mu.Unlock()
	close(c.done)
}

// PID returns the OS process id.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Command returns the candidate that was started.
func (c *Child) Command() platform.Command { return c.command }

// Done is closed once the process has exited.
func (c *Child) Done() <-chan struct{} { return c.done }

// Exited reports whether the process has exited.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ExitErr is the wait error after exit, nil for a clean exit or while running.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// Stderr returns the tail of the helper's stderr.
func (c *Child) Stderr() string { return c.stderr.String() }

// Stop kills the process and waits up to timeout for it to be reaped.
// A process that already exited is not an error.
func (c *Child) Stop(timeout time.Duration) error {
	if c.Exited() {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return errors.New("helper did not exit after kill")
	}
}
