package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// ─── WallpaperType ──────────────────────────────────────────────────────────

func TestWallpaperType_String(t *testing.T) {
	tests := []struct {
		in   WallpaperType
		want string
	}{
		{WallpaperStatic, "static"},
		{WallpaperVideo, "video"},
		{WallpaperWeb, "web"},
		{WallpaperShader, "shader"},
		{WallpaperAudio, "audio"},
		{WallpaperType(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("WallpaperType(%d).String() = %q, want %q", int(tt.in), got, tt.want)
		}
	}
}

func TestParseWallpaperType(t *testing.T) {
	got, err := ParseWallpaperType("Video")
	if err != nil {
		t.Fatalf("ParseWallpaperType() error: %v", err)
	}
	if got != WallpaperVideo {
		t.Errorf("ParseWallpaperType(Video) = %v, want video", got)
	}

	if _, err := ParseWallpaperType("slideshow"); !errors.Is(err, ErrWallpaper) {
		t.Errorf("ParseWallpaperType(slideshow) error = %v, want ErrWallpaper", err)
	}
}

// ─── WallpaperSpec ──────────────────────────────────────────────────────────

func TestWallpaperSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    WallpaperSpec
		wantErr bool
	}{
		{"static with path", WallpaperSpec{Type: WallpaperStatic, Path: "/a.jpg"}, false},
		{"static without path", WallpaperSpec{Type: WallpaperStatic}, true},
		{"video with url", WallpaperSpec{Type: WallpaperVideo, Path: "/a.mp4", URL: "http://x"}, true},
		{"web with url", WallpaperSpec{Type: WallpaperWeb, URL: "https://example.com"}, false},
		{"web with path", WallpaperSpec{Type: WallpaperWeb, URL: "https://example.com", Path: "/a"}, true},
		{"web without url", WallpaperSpec{Type: WallpaperWeb}, true},
		{"shader with path", WallpaperSpec{Type: WallpaperShader, Path: "/a.glsl"}, false},
		{"audio with path", WallpaperSpec{Type: WallpaperAudio, Path: "/a.glsl"}, false},
		{"bad type", WallpaperSpec{Type: WallpaperType(9), Path: "/a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrWallpaper) {
				t.Errorf("Validate() error = %v, want ErrWallpaper", err)
			}
		})
	}
}

func TestWallpaperSpec_JSONUsesTypeName(t *testing.T) {
	data, err := json.Marshal(WallpaperSpec{Name: "clip", Type: WallpaperVideo, Path: "/v.mp4"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"name":"clip","type":"video","path":"/v.mp4"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

// ─── Trigger ────────────────────────────────────────────────────────────────

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		in   string
		want Trigger
	}{
		{"time:08:00", TimeTrigger(8, 0)},
		{"time:18:30", TimeTrigger(18, 30)},
		{"interval:30m", IntervalTrigger(30 * time.Minute)},
		{"event:login", SystemEventTrigger("login")},
		{"system_event:resume", SystemEventTrigger("resume")},
		{"custom:party", CustomTrigger("party")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTrigger(tt.in)
			if err != nil {
				t.Fatalf("ParseTrigger(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTrigger(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTrigger_Invalid(t *testing.T) {
	for _, in := range []string{"time:25:00", "time:8", "interval:-5m", "interval:soon", "event:", "cron:* * *", "nocolon"} {
		if _, err := ParseTrigger(in); !errors.Is(err, ErrConfig) {
			t.Errorf("ParseTrigger(%q) error = %v, want ErrConfig", in, err)
		}
	}
}

func TestTrigger_StringParsesBack(t *testing.T) {
	for _, tr := range []Trigger{TimeTrigger(7, 5), IntervalTrigger(90 * time.Second), CustomTrigger("x")} {
		got, err := ParseTrigger(tr.String())
		if err != nil {
			t.Fatalf("ParseTrigger(%q) error: %v", tr.String(), err)
		}
		if got != tr {
			t.Errorf("ParseTrigger(%q) = %+v, want %+v", tr.String(), got, tr)
		}
	}
}

func TestScheduleItem_JSON(t *testing.T) {
	item := ScheduleItem{
		ID:        "abc",
		Trigger:   TimeTrigger(8, 0),
		Wallpaper: WallpaperSpec{Name: "Morning", Type: WallpaperStatic, Path: "/m.jpg"},
		Enabled:   true,
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got ScheduleItem
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got != item {
		t.Errorf("round trip = %+v, want %+v", got, item)
	}
}

// ─── Errors ─────────────────────────────────────────────────────────────────

func TestPlatformError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := error(&PlatformError{Op: "set static", Tool: "nitrogen", Output: "no display\n", Err: cause})

	if !errors.Is(err, ErrPlatform) {
		t.Error("PlatformError should match ErrPlatform")
	}
	if !errors.Is(err, cause) {
		t.Error("PlatformError should match its cause")
	}
	want := "platform error: set static: last tool nitrogen: exit status 1: no display"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestResourceLimitError_As(t *testing.T) {
	err := error(&ResourceLimitError{ID: "b", Resource: "memory", Requested: 10, Limit: 5})

	var rle *ResourceLimitError
	if !errors.As(err, &rle) {
		t.Fatal("errors.As should find *ResourceLimitError")
	}
	if rle.Resource != "memory" {
		t.Errorf("Resource = %q, want memory", rle.Resource)
	}
	if !errors.Is(err, ErrResourceLimit) {
		t.Error("ResourceLimitError should match ErrResourceLimit")
	}
}

func TestNotImplemented(t *testing.T) {
	err := NotImplemented("web resume")
	if !errors.Is(err, ErrWallpaper) || !errors.Is(err, ErrNotImplemented) {
		t.Errorf("NotImplemented() = %v, want ErrWallpaper and ErrNotImplemented", err)
	}
}
