package health

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/aether-desk/aether/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeLoop struct {
	mu      sync.Mutex
	running bool
	starts  int
}

func (f *fakeLoop) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeLoop) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return nil
}

func lookOnly(names ...string) func(string) (string, error) {
	return func(n string) (string, error) {
		for _, want := range names {
			if n == want {
				return "/usr/bin/" + n, nil
			}
		}
		return "", errors.New("not found")
	}
}

func statusOf(c *Checker, name string) (Status, bool) {
	for _, s := range c.Statuses() {
		if s.Name == name {
			return s, true
		}
	}
	return Status{}, false
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	c := NewChecker(Options{
		DB:        newTestDB(t),
		Scheduler: &fakeLoop{running: true},
		Tools:     []string{"feh"},
		LookPath:  lookOnly("feh"),
	})
	if len(c.checks) != 3 {
		t.Errorf("checks = %d, want 3", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(Options{
		DB:        newTestDB(t),
		Scheduler: &fakeLoop{running: true},
		Tools:     []string{"gsettings", "feh"},
		LookPath:  lookOnly("feh"),
	})
	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(Options{DB: newTestDB(t)})

	// No statuses yet, so IsHealthy is vacuously true.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_SchedulerRecovers(t *testing.T) {
	loop := &fakeLoop{}
	c := NewChecker(Options{Scheduler: loop})

	c.RunOnce(context.Background())
	s, _ := statusOf(c, "scheduler")
	if s.Healthy {
		t.Error("scheduler check should fail while the loop is stopped")
	}
	if loop.starts != 1 {
		t.Errorf("recovery starts = %d, want 1", loop.starts)
	}
	if !s.Recovered {
		t.Error("Recovered should be set after a successful restart")
	}

	c.RunOnce(context.Background())
	if s, _ := statusOf(c, "scheduler"); !s.Healthy {
		t.Errorf("scheduler should be healthy after recovery: %s", s.Error)
	}
}

func TestChecker_PlatformToolsMissing(t *testing.T) {
	c := NewChecker(Options{Tools: []string{"gsettings", "feh"}, LookPath: lookOnly()})
	c.RunOnce(context.Background())

	s, ok := statusOf(c, "platform_tools")
	if !ok {
		t.Fatal("platform_tools check not found in statuses")
	}
	if s.Healthy {
		t.Error("platform_tools should fail when nothing resolves")
	}
}

func TestChecker_NativeStrategyHasNoTools(t *testing.T) {
	c := NewChecker(Options{Tools: []string{}, LookPath: lookOnly()})
	c.RunOnce(context.Background())
	if !c.IsHealthy() {
		t.Error("an empty tool list should be healthy")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_fail",
				CheckFn: func(ctx context.Context) error {
					return os.ErrPermission
				},
			},
		},
	}

	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(Options{DB: newTestDB(t)})
	c.RunOnce(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}

func freeBytes(n uint64, err error) func(string) (uint64, error) {
	return func(string) (uint64, error) { return n, err }
}

func TestChecker_DiskSpace(t *testing.T) {
	tests := []struct {
		name    string
		free    func(string) (uint64, error)
		healthy bool
	}{
		{"plenty", freeBytes(10<<30, nil), true},
		{"exactly min", freeBytes(DefaultMinFree, nil), true},
		{"low", freeBytes(1<<20, nil), false},
		{"stat fails", freeBytes(0, os.ErrNotExist), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(Options{DataDir: "/var/lib/aether", FreeSpace: tt.free})
			c.RunOnce(context.Background())
			s, ok := statusOf(c, "disk_space")
			if !ok {
				t.Fatal("disk_space check not found")
			}
			if s.Healthy != tt.healthy {
				t.Errorf("Healthy = %v, want %v (%s)", s.Healthy, tt.healthy, s.Error)
			}
		})
	}
}

func TestChecker_DiskSpaceRealDir(t *testing.T) {
	c := NewChecker(Options{DataDir: t.TempDir(), MinFree: 1})
	c.RunOnce(context.Background())
	if s, _ := statusOf(c, "disk_space"); !s.Healthy {
		t.Errorf("temp dir should have a byte free: %s", s.Error)
	}
}
