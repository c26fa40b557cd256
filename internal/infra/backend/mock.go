package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/aether-desk/aether/internal/domain"
)

// ─── Mock Backend (for testing without helpers or a desktop) ────────────────

// Recorder collects lifecycle events from every MockBackend sharing it, in
// call order, e.g. "stop:video", "start:static".
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// MockBackend implements Backend in memory.
type MockBackend struct {
	Spec      domain.WallpaperSpec
	Rec       *Recorder
	FailCheck error
	FailStart error
	FailStop  error
	FakePID   int

	running bool
	paused  bool
}

// NewMockBackend returns a mock for spec that records into rec.
func NewMockBackend(spec domain.WallpaperSpec, rec *Recorder) *MockBackend {
	if rec == nil {
		rec = &Recorder{}
	}
	return &MockBackend{Spec: spec, Rec: rec}
}

func (m *MockBackend) Type() domain.WallpaperType { return m.Spec.Type }
func (m *MockBackend) Path() string               { return m.Spec.Path }
func (m *MockBackend) PID() int                   { return m.FakePID }

// Running reports whether Start succeeded and Stop has not been called.
func (m *MockBackend) Running() bool { return m.running }

// Paused reports whether Pause is in effect.
func (m *MockBackend) Paused() bool { return m.paused }

func (m *MockBackend) Check(context.Context) error {
	m.Rec.add("check:" + m.Spec.Type.String())
	return m.FailCheck
}

func (m *MockBackend) Start(context.Context) error {
	m.Rec.add("start:" + m.Spec.Type.String())
	if m.FailStart != nil {
		return m.FailStart
	}
	m.running = true
	return nil
}

func (m *MockBackend) Stop(context.Context) error {
	m.Rec.add("stop:" + m.Spec.Type.String())
	m.running = false
	m.paused = false
	return m.FailStop
}

func (m *MockBackend) Pause(context.Context) error {
	m.Rec.add("pause:" + m.Spec.Type.String())
	if !m.running {
		return fmt.Errorf("%w: not running", domain.ErrWallpaper)
	}
	m.paused = true
	return nil
}

func (m *MockBackend) Resume(context.Context) error {
	m.Rec.add("resume:" + m.Spec.Type.String())
	if m.Spec.Type == domain.WallpaperWeb {
		return domain.NotImplemented("web resume")
	}
	m.paused = false
	return nil
}

// MockFactory builds MockBackends sharing one Recorder. Hook, when set, can
// adjust each mock before it is returned.
type MockFactory struct {
	Rec  *Recorder
	Hook func(*MockBackend)

	mu    sync.Mutex
	built []*MockBackend
}

// NewMockFactory returns a factory whose Recorder exists before the first
// backend is built.
func NewMockFactory(hook func(*MockBackend)) *MockFactory {
	return &MockFactory{Rec: &Recorder{}, Hook: hook}
}

// New matches the signature of backend.New so it can stand in for it.
func (f *MockFactory) New(spec domain.WallpaperSpec, _ Deps) (Backend, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.Rec == nil {
		f.Rec = &Recorder{}
	}
	m := NewMockBackend(spec, f.Rec)
	f.built = append(f.built, m)
	f.mu.Unlock()
	if f.Hook != nil {
		f.Hook(m)
	}
	return m, nil
}

// Built returns every mock created so far.
func (f *MockFactory) Built() []*MockBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockBackend(nil), f.built...)
}
