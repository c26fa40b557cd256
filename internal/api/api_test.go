package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/backend"
	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/infra/resource"
	"github.com/aether-desk/aether/internal/infra/scheduler"
	"github.com/aether-desk/aether/internal/infra/sqlite"
	"github.com/aether-desk/aether/internal/logging"
)

type fakePlatform struct{ current string }

func (p *fakePlatform) Name() string { return "fake" }
func (p *fakePlatform) SetStatic(_ context.Context, path string) error {
	p.current = path
	return nil
}
func (p *fakePlatform) VideoLaunch(string, platform.Window) (platform.Launch, error) {
	return platform.Launch{}, nil
}
func (p *fakePlatform) WebLaunch(string) (platform.Launch, error)    { return platform.Launch{}, nil }
func (p *fakePlatform) ShaderLaunch(string) (platform.Launch, error) { return platform.Launch{}, nil }
func (p *fakePlatform) AudioLaunch(string) (platform.Launch, error)  { return platform.Launch{}, nil }
func (p *fakePlatform) DesktopWindow() (platform.Window, bool)       { return 0, false }
func (p *fakePlatform) Stop(context.Context) error                   { return nil }
func (p *fakePlatform) Current() string                              { return p.current }
func (p *fakePlatform) Tools() []string                              { return []string{"fake-setter"} }

func (p *fakePlatform) Clear(context.Context) error {
	p.current = ""
	return nil
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	factory   *backend.MockFactory
	resources *resource.Manager
	sched     *scheduler.Scheduler
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	plat := &fakePlatform{}
	factory := &backend.MockFactory{}
	res := resource.NewManager(domain.DefaultResourceLimits())
	slot := scheduler.NewSlot(scheduler.SlotOptions{
		Deps:      backend.Deps{Platform: plat, Log: logging.Discard()},
		Factory:   factory.New,
		Resources: res,
		State:     db,
		Log:       logging.Discard(),
	})
	sched := scheduler.New(scheduler.DefaultConfig(), slot, db, logging.Discard())

	srv := NewServer(sched, res, plat)
	return &testEnv{srv: srv, handler: srv.Handler(), factory: factory, resources: res, sched: sched}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func errType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	decodeBody(t, w, &env)
	return env.Error.Type
}

// ─── Basic Routes ───────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)
	w := env.do(t, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestServer(t)
	w := env.do(t, "GET", "/api/version", "")
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["version"] != Version {
		t.Errorf("version = %q, want %q", resp["version"], Version)
	}
}

func TestPlatformEndpoint(t *testing.T) {
	env := newTestServer(t)
	w := env.do(t, "GET", "/api/platform", "")
	var resp PlatformResponse
	decodeBody(t, w, &resp)
	if resp.Name != "fake" || len(resp.Tools) != 1 {
		t.Errorf("platform = %+v", resp)
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	env := newTestServer(t)
	if w := env.do(t, "GET", "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404 when disabled", w.Code)
	}
	env.srv.EnableMetrics()
	h := env.srv.Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200 when enabled", w.Code)
	}
}

// ─── Wallpaper ──────────────────────────────────────────────────────────────

func TestApplyAndActive(t *testing.T) {
	env := newTestServer(t)

	if w := env.do(t, "GET", "/api/wallpaper/", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET active on empty slot = %d, want 404", w.Code)
	}

	w := env.do(t, "POST", "/api/wallpaper/", `{"name":"clip","type":"video","path":"/w/clip.mp4"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST apply = %d body %s", w.Code, w.Body.String())
	}
	var a domain.ActiveWallpaper
	decodeBody(t, w, &a)
	if a.Spec.Type != domain.WallpaperVideo || a.Spec.Path != "/w/clip.mp4" {
		t.Errorf("active = %+v", a)
	}

	if _, ok := env.resources.UsageOf(scheduler.ResourceID); !ok {
		t.Error("video apply should reserve resources")
	}

	w = env.do(t, "GET", "/api/status", "")
	var st StatusResponse
	decodeBody(t, w, &st)
	if st.Active == nil || st.Active.Spec.Name != "clip" || st.Platform != "fake" {
		t.Errorf("status = %+v", st)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantType string
	}{
		{"bad json", `{"type":`, http.StatusBadRequest, "invalid_request"},
		{"unknown type", `{"type":"gif","path":"/a"}`, http.StatusBadRequest, "invalid_request"},
		{"web with path", `{"type":"web","path":"/a"}`, http.StatusUnprocessableEntity, "invalid_wallpaper"},
		{"static without path", `{"type":"static"}`, http.StatusUnprocessableEntity, "invalid_wallpaper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t)
			w := env.do(t, "POST", "/api/wallpaper/", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := errType(t, w); got != tt.wantType {
				t.Errorf("error type = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	env := newTestServer(t)

	if w := env.do(t, "POST", "/api/wallpaper/pause", ""); w.Code != http.StatusNotFound {
		t.Errorf("pause on empty slot = %d, want 404", w.Code)
	}

	env.do(t, "POST", "/api/wallpaper/", `{"type":"shader","path":"/w/s.frag"}`)
	if w := env.do(t, "POST", "/api/wallpaper/pause", ""); w.Code != http.StatusNoContent {
		t.Fatalf("pause = %d", w.Code)
	}
	a, _ := env.sched.Slot().Active()
	if !a.Paused {
		t.Error("slot should report paused")
	}
	if w := env.do(t, "POST", "/api/wallpaper/resume", ""); w.Code != http.StatusNoContent {
		t.Fatalf("resume = %d", w.Code)
	}
}

func TestWebResume_NotImplemented(t *testing.T) {
	env := newTestServer(t)
	env.do(t, "POST", "/api/wallpaper/", `{"type":"web","url":"https://example.com"}`)
	env.do(t, "POST", "/api/wallpaper/pause", "")

	w := env.do(t, "POST", "/api/wallpaper/resume", "")
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("web resume = %d, want 501", w.Code)
	}
	if got := errType(t, w); got != "not_implemented" {
		t.Errorf("error type = %q", got)
	}
}

func TestStopAndClear(t *testing.T) {
	env := newTestServer(t)
	env.do(t, "POST", "/api/wallpaper/", `{"type":"video","path":"/w/v.mp4"}`)

	if w := env.do(t, "POST", "/api/wallpaper/stop", ""); w.Code != http.StatusNoContent {
		t.Fatalf("stop = %d", w.Code)
	}
	if _, ok := env.sched.Slot().Active(); ok {
		t.Error("slot should be empty after stop")
	}
	if _, ok := env.resources.UsageOf(scheduler.ResourceID); ok {
		t.Error("stop should release the reservation")
	}

	env.do(t, "POST", "/api/wallpaper/", `{"type":"static","path":"/w/a.jpg"}`)
	if w := env.do(t, "POST", "/api/wallpaper/clear", ""); w.Code != http.StatusNoContent {
		t.Fatalf("clear = %d body %s", w.Code, w.Body.String())
	}
}

func TestApply_StartFailure(t *testing.T) {
	env := newTestServer(t)
	env.factory.Hook = func(m *backend.MockBackend) {
		m.FailStart = &domain.PlatformError{Op: "set static", Tool: "gsettings", Err: errors.New("exit 1")}
	}
	w := env.do(t, "POST", "/api/wallpaper/", `{"type":"static","path":"/w/a.jpg"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", w.Code)
	}
}

// ─── Schedule ───────────────────────────────────────────────────────────────

func TestScheduleCRUD(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "GET", "/api/schedule/", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty schedule body = %q, want []", w.Body.String())
	}

	w = env.do(t, "POST", "/api/schedule/", `{
		"trigger": {"kind": "time", "value": "08:00"},
		"wallpaper": {"name": "Morning", "type": "static", "path": "/w/m.jpg"},
		"enabled": true
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST schedule = %d body %s", w.Code, w.Body.String())
	}
	var added domain.ScheduleItem
	decodeBody(t, w, &added)
	if added.ID == "" {
		t.Fatal("added item should get an id")
	}

	w = env.do(t, "POST", "/api/schedule/"+added.ID+"/disable", "")
	var got domain.ScheduleItem
	decodeBody(t, w, &got)
	if got.Enabled {
		t.Error("item should be disabled")
	}

	w = env.do(t, "PUT", "/api/schedule/"+added.ID, `{
		"trigger": {"kind": "time", "value": "09:30"},
		"wallpaper": {"name": "Later", "type": "static", "path": "/w/l.jpg"},
		"enabled": true
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT schedule = %d body %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &got)
	if got.ID != added.ID || got.Trigger != domain.TimeTrigger(9, 30) {
		t.Errorf("updated = %+v", got)
	}

	if w := env.do(t, "DELETE", "/api/schedule/"+added.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", w.Code)
	}
	if w := env.do(t, "GET", "/api/schedule/"+added.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("GET removed item = %d, want 404", w.Code)
	}
}

func TestScheduleReplace(t *testing.T) {
	env := newTestServer(t)
	w := env.do(t, "PUT", "/api/schedule/", `[
		{"id": "a", "trigger": {"kind": "interval", "value": "15m"}, "wallpaper": {"type": "static", "path": "/a.jpg"}, "enabled": true},
		{"id": "b", "trigger": {"kind": "event", "value": "login"}, "wallpaper": {"type": "web", "url": "https://x"}, "enabled": false}
	]`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT schedule = %d body %s", w.Code, w.Body.String())
	}
	var items []domain.ScheduleItem
	decodeBody(t, w, &items)
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Errorf("items = %+v", items)
	}
}

func TestSchedule_UnknownID(t *testing.T) {
	env := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/schedule/nope"},
		{"DELETE", "/api/schedule/nope"},
		{"POST", "/api/schedule/nope/enable"},
	} {
		if w := env.do(t, tc.method, tc.path, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
}

// ─── Resources ──────────────────────────────────────────────────────────────

func TestResources(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "POST", "/api/resources/overlay", `{"memory_used": 1048576, "active_processes": 1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d body %s", w.Code, w.Body.String())
	}
	if w := env.do(t, "POST", "/api/resources/overlay", `{"memory_used": 1}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}
	if w := env.do(t, "PUT", "/api/resources/overlay", `{"memory_used": 524288, "active_processes": 2}`); w.Code != http.StatusOK {
		t.Errorf("update = %d", w.Code)
	}

	w = env.do(t, "GET", "/api/resources/", "")
	var r ResourcesResponse
	decodeBody(t, w, &r)
	// The process count is fixed at registration; updates only resize.
	if r.Usage.MemoryUsed != 524288 || r.Usage.ActiveProcesses != 1 || !r.WithinLimits {
		t.Errorf("resources = %+v", r)
	}
	if _, ok := r.Entries["overlay"]; !ok {
		t.Error("entries should include overlay")
	}

	if w := env.do(t, "POST", "/api/resources/huge", `{"memory_used": 1099511627776}`); w.Code != http.StatusConflict {
		t.Errorf("over-limit register = %d, want 409", w.Code)
	}

	w = env.do(t, "DELETE", "/api/resources/overlay", "")
	var last domain.ResourceUsage
	decodeBody(t, w, &last)
	if last.MemoryUsed != 524288 {
		t.Errorf("unregister returned %+v", last)
	}
	if w := env.do(t, "DELETE", "/api/resources/overlay", ""); w.Code != http.StatusNotFound {
		t.Errorf("second unregister = %d, want 404", w.Code)
	}
}

// ─── Error Mapping ──────────────────────────────────────────────────────────

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NotImplemented("x"), http.StatusNotImplemented},
		{domain.ErrScheduleItemNotFound, http.StatusNotFound},
		{domain.ErrNoActiveWallpaper, http.StatusNotFound},
		{&domain.ResourceLimitError{Resource: "memory"}, http.StatusConflict},
		{&domain.PlatformError{Op: "set"}, http.StatusBadGateway},
		{domain.ErrProcessControl, http.StatusBadGateway},
		{domain.ErrWallpaper, http.StatusUnprocessableEntity},
		{domain.ErrConfig, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// ─── Client ─────────────────────────────────────────────────────────────────

func TestClient(t *testing.T) {
	env := newTestServer(t)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)

	c := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	ctx := context.Background()

	_, err := c.Active(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("Active() on empty slot error = %v, want 404 APIError", err)
	}

	a, err := c.Apply(ctx, domain.WallpaperSpec{Name: "v", Type: domain.WallpaperVideo, Path: "/v.mp4"})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if a.Spec.Path != "/v.mp4" {
		t.Errorf("Apply() = %+v", a)
	}
	if err := c.Pause(ctx); err != nil {
		t.Errorf("Pause() error: %v", err)
	}
	if err := c.Resume(ctx); err != nil {
		t.Errorf("Resume() error: %v", err)
	}

	item, err := c.AddItem(ctx, domain.ScheduleItem{
		Trigger:   domain.TimeTrigger(18, 0),
		Wallpaper: domain.WallpaperSpec{Name: "e", Type: domain.WallpaperStatic, Path: "/e.jpg"},
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("AddItem() error: %v", err)
	}
	if _, err := c.SetEnabled(ctx, item.ID, false); err != nil {
		t.Errorf("SetEnabled() error: %v", err)
	}
	items, err := c.Schedule(ctx)
	if err != nil || len(items) != 1 || items[0].Enabled {
		t.Errorf("Schedule() = %+v, %v", items, err)
	}
	if err := c.RemoveItem(ctx, item.ID); err != nil {
		t.Errorf("RemoveItem() error: %v", err)
	}

	if err := c.Register(ctx, "x", domain.ResourceUsage{MemoryUsed: 10}); err != nil {
		t.Errorf("Register() error: %v", err)
	}
	r, err := c.Resources(ctx)
	if err != nil || r.Allocated == 0 {
		t.Errorf("Resources() = %+v, %v", r, err)
	}
	if _, err := c.Unregister(ctx, "x"); err != nil {
		t.Errorf("Unregister() error: %v", err)
	}

	h, err := c.Health(ctx)
	if err != nil || !h.Healthy {
		t.Errorf("Health() = %+v, %v", h, err)
	}

	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
}
