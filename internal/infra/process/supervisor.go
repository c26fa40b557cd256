// Package process spawns wallpaper helpers, finds the processes they
// leave behind, and pauses or resumes them.
//
// Helpers such as browsers often hand off to an existing instance and exit,
// so the PID worth controlling is found after the fact: wait a settle delay,
// scan the process table for a known executable whose command line mentions
// the asset, and remember it on a Target.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
	"github.com/aether-desk/aether/internal/infra/platform"
)

// DefaultSettleDelay is how long a helper gets before discovery.
const DefaultSettleDelay = 500 * time.Millisecond

// Signals suspends, resumes and terminates processes by PID.
type Signals interface {
	Suspend(pid int) error
	Resume(pid int) error
	Terminate(pid int) error
}

// Windows minimizes and restores the windows a PID owns.
type Windows interface {
	Minimize(pid int) error
	Restore(pid int) error
}

// Options configures a Supervisor. Zero values select OS implementations.
type Options struct {
	Settle  time.Duration
	Lister  Lister
	Signals Signals
	Windows Windows
	Log     *slog.Logger
}

// Supervisor owns helper lifecycles and post-hoc PID discovery.
type Supervisor struct {
	settle  time.Duration
	lister  Lister
	signals Signals
	windows Windows
	log     *slog.Logger
}

// NewSupervisor creates a supervisor.
func NewSupervisor(o Options) *Supervisor {
	if o.Settle <= 0 {
		o.Settle = DefaultSettleDelay
	}
	if o.Lister == nil {
		o.Lister = GopsutilLister{}
	}
	if o.Signals == nil {
		o.Signals = OSSignals{}
	}
	if o.Windows == nil {
		o.Windows = X11Windows{}
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return &Supervisor{settle: o.Settle, lister: o.Lister, signals: o.Signals, windows: o.Windows, log: o.Log}
}

// SettleDelay returns the configured settle delay.
func (s *Supervisor) SettleDelay() time.Duration { return s.settle }

// ─── Spawning ───────────────────────────────────────────────────────────────

// Resolve returns the first candidate whose binary can be found.
func Resolve(candidates []platform.Command) (platform.Command, string, error) {
	for _, c := range candidates {
		if path, err := lookPath(c.Name); err == nil {
			return c, path, nil
		}
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return platform.Command{}, "", fmt.Errorf("%w: helper not found (tried %s)", domain.ErrWallpaper, strings.Join(names, ", "))
}

func lookPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		info, err := os.Stat(name)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", name)
		}
		return name, nil
	}
	return exec.LookPath(name)
}

// Spawn starts the first resolvable candidate. The child outlives ctx;
// only Stop ends it.
func (s *Supervisor) Spawn(ctx context.Context, candidates []platform.Command) (*Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, path, err := Resolve(candidates)
	if err != nil {
		return nil, err
	}

	stderr := &limitedBuffer{max: 8192}
	cmd := exec.Command(path, c.Args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", domain.ErrWallpaper, c.Name, err)
	}

	child := &Child{cmd: cmd, command: c, stderr: stderr, done: make(chan struct{})}
	go child.wait()

	s.log.Info("helper started", "cmd", c.Name, "pid", child.PID())
	return child, nil
}

// ─── Discovery ──────────────────────────────────────────────────────────────

// Found is the outcome of a discovery. Owned is true when the PID is the
// spawned child or one of its descendants; only owned processes may be
// terminated.
type Found struct {
	PID   int
	Owned bool
}

// Discover waits the settle delay and scans for the helper's process.
// When child is non-nil, a non-zero exit during the wait fails the call
// with the helper's stderr. While the child is alive a match in its own
// process tree wins, then the child itself; a match outside the tree is
// used only once the child has handed off and exited.
func (s *Supervisor) Discover(ctx context.Context, child *Child, names []string, needle string) (Found, error) {
	if err := s.settleWait(ctx, child, false); err != nil {
		return Found{}, err
	}

	procs, err := s.snapshot(ctx)
	if err != nil {
		return Found{}, err
	}
	root := 0
	if child != nil && !child.Exited() {
		root = child.PID()
	}
	pid, owned, ok := pick(procs, names, needle, root)
	switch {
	case ok && (owned || root == 0):
		metrics.Discoveries.WithLabelValues("found").Inc()
		return Found{PID: pid, Owned: owned}, nil
	case root != 0:
		s.log.Debug("discovery fell back to child pid", "pid", root)
		return Found{PID: root, Owned: true}, nil
	}
	metrics.Discoveries.WithLabelValues("missing").Inc()
	return Found{}, missing(names, needle)
}

// Settle waits the settle delay for a helper that is its own wallpaper
// process and returns its PID. Any exit during the wait fails the call.
func (s *Supervisor) Settle(ctx context.Context, child *Child) (int, error) {
	if err := s.settleWait(ctx, child, true); err != nil {
		return 0, err
	}
	return child.PID(), nil
}

// settleWait sleeps the settle delay, returning early when child exits.
// A failed exit is an error; a clean exit is one too when strict, and
// otherwise counts as a launcher handing off.
func (s *Supervisor) settleWait(ctx context.Context, child *Child, strict bool) error {
	timer := time.NewTimer(s.settle)
	defer timer.Stop()

	var exited <-chan struct{}
	if child != nil {
		exited = child.Done()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	case <-exited:
	}
	if err := child.ExitErr(); err != nil || strict {
		if err == nil {
			err = errors.New("exit status 0")
		}
		return fmt.Errorf("%w: %s exited: %v: %s", domain.ErrWallpaper,
			child.Command().Name, err, tail(child.Stderr(), 10))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scan performs one pass over the process table with no settle delay.
func (s *Supervisor) Scan(ctx context.Context, names []string, needle string) (int, error) {
	procs, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if pid, _, ok := pick(procs, names, needle, 0); ok {
		metrics.Discoveries.WithLabelValues("found").Inc()
		return pid, nil
	}
	metrics.Discoveries.WithLabelValues("missing").Inc()
	return 0, missing(names, needle)
}

func (s *Supervisor) snapshot(ctx context.Context) ([]Info, error) {
	procs, err := s.lister.Processes(ctx)
	if err != nil {
		metrics.Discoveries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: list processes: %v", domain.ErrProcessControl, err)
	}
	return procs, nil
}

func missing(names []string, needle string) error {
	return fmt.Errorf("%w: no %s process mentioning %q", domain.ErrProcessControl, strings.Join(names, "/"), needle)
}

// pick returns the first matching process in root's tree, else the first
// match anywhere. root 0 disables the tree preference.
func pick(procs []Info, names []string, needle string, root int) (pid int, owned, ok bool) {
	self := os.Getpid()
	parent := make(map[int]int, len(procs))
	for _, p := range procs {
		parent[p.PID] = p.PPID
	}
	for _, p := range procs {
		if p.PID == self || !nameMatches(p.Name, names) {
			continue
		}
		if needle != "" && !strings.Contains(p.Cmdline, needle) {
			continue
		}
		if root != 0 && descends(parent, p.PID, root) {
			return p.PID, true, true
		}
		if !ok {
			pid, ok = p.PID, true
		}
	}
	return pid, false, ok
}

// descends walks the parent chain from pid looking for root.
func descends(parent map[int]int, pid, root int) bool {
	for hops := 0; pid > 1 && hops < 64; hops++ {
		if pid == root {
			return true
		}
		pid = parent[pid]
	}
	return false
}

func nameMatches(name string, names []string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".exe")
	for _, n := range names {
		if name == strings.TrimSuffix(strings.ToLower(n), ".exe") {
			return true
		}
	}
	return false
}

// ─── Control ────────────────────────────────────────────────────────────────

// Suspend stops the target's process from running.
func (s *Supervisor) Suspend(ctx context.Context, t *Target) error {
	return s.control(ctx, "suspend", t, s.signals.Suspend)
}

// Resume continues a suspended target.
func (s *Supervisor) Resume(ctx context.Context, t *Target) error {
	return s.control(ctx, "resume", t, s.signals.Resume)
}

// Terminate asks the target to exit.
func (s *Supervisor) Terminate(ctx context.Context, t *Target) error {
	return s.control(ctx, "terminate", t, s.signals.Terminate)
}

// Minimize iconifies the target's windows.
func (s *Supervisor) Minimize(ctx context.Context, t *Target) error {
	return s.control(ctx, "minimize", t, s.windows.Minimize)
}

// Restore brings the target's windows back.
func (s *Supervisor) Restore(ctx context.Context, t *Target) error {
	return s.control(ctx, "restore", t, s.windows.Restore)
}

// control applies fn to the target's PID. Without a cached PID, or when fn
// fails, it rediscovers once and retries once.
func (s *Supervisor) control(ctx context.Context, op string, t *Target, fn func(pid int) error) error {
	if t.owned {
		if t.PID() <= 0 {
			return fmt.Errorf("%w: %s: helper has no pid", domain.ErrProcessControl, op)
		}
		if err := fn(t.PID()); err != nil {
			metrics.ProcessControl.WithLabelValues(op, "error").Inc()
			if errors.Is(err, domain.ErrNotImplemented) {
				return err
			}
			return fmt.Errorf("%w: %s pid %d: %v", domain.ErrProcessControl, op, t.PID(), err)
		}
		metrics.ProcessControl.WithLabelValues(op, "ok").Inc()
		return nil
	}

	var firstErr error
	if pid := t.PID(); pid > 0 {
		if firstErr = fn(pid); firstErr == nil {
			metrics.ProcessControl.WithLabelValues(op, "ok").Inc()
			return nil
		}
		s.log.Debug(op+" failed, rediscovering", "pid", pid, "error", firstErr)
	}

	pid, err := s.Scan(ctx, t.names, t.needle)
	if err != nil {
		metrics.ProcessControl.WithLabelValues(op, "error").Inc()
		if firstErr != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrProcessControl, op, errors.Join(firstErr, err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	t.set(pid)

	if err := fn(pid); err != nil {
		metrics.ProcessControl.WithLabelValues(op, "error").Inc()
		if errors.Is(err, domain.ErrNotImplemented) {
			return err
		}
		return fmt.Errorf("%w: %s pid %d: %v", domain.ErrProcessControl, op, pid, err)
	}
	metrics.ProcessControl.WithLabelValues(op, "ok").Inc()
	return nil
}

// ─── Target ─────────────────────────────────────────────────────────────────

// Target remembers how to find a helper process and the PID last found.
// An owned target is a process aether spawned; it is never rediscovered.
type Target struct {
	names  []string
	needle string
	owned  bool

	mu  sync.Mutex
	pid int
}

// NewTarget creates a target. pid may be 0 when not yet known.
func NewTarget(names []string, needle string, pid int) *Target {
	return &Target{names: names, needle: needle, pid: pid}
}

// NewOwnedTarget creates a target for a process aether spawned.
func NewOwnedTarget(pid int) *Target {
	return &Target{pid: pid, owned: true}
}

// PID returns the cached PID, 0 if unknown.
func (t *Target) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pid
}

func (t *Target) set(pid int) {
	t.mu.Lock()
	t.pid = pid
	t.mu.Unlock()
}

func tail(s string, lines int) string {
	parts := strings.Split(strings.TrimSpace(s), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}
