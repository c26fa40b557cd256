package schedulefile

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

func sample() []domain.ScheduleItem {
	return []domain.ScheduleItem{
		{
			ID:        "m",
			Trigger:   domain.TimeTrigger(8, 0),
			Wallpaper: domain.WallpaperSpec{Name: "Morning", Type: domain.WallpaperStatic, Path: "/w/m.jpg"},
			Enabled:   true,
		},
		{
			ID:        "p",
			Trigger:   domain.IntervalTrigger(15 * time.Minute),
			Wallpaper: domain.WallpaperSpec{Name: "Page", Type: domain.WallpaperWeb, URL: "https://example.com"},
		},
	}
}

func TestWriteReadFile(t *testing.T) {
	for _, name := range []string{"s.yaml", "s.yml", "s.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := WriteFile(path, sample()); err != nil {
				t.Fatalf("WriteFile() error: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if !reflect.DeepEqual(got, sample()) {
				t.Errorf("ReadFile() = %+v, want %+v", got, sample())
			}
		})
	}
}

func TestDecode_HandWrittenYAML(t *testing.T) {
	doc := `
items:
  - trigger: "time:18:00"
    wallpaper:
      name: Evening
      type: Static
      path: /w/evening.jpg
  - trigger: "event:login"
    enabled: false
    wallpaper:
      name: Shader
      type: shader
      path: /w/s.frag
`
	items, err := Decode(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if !items[0].Enabled || items[0].Trigger != domain.TimeTrigger(18, 0) {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Enabled || items[1].Wallpaper.Type != domain.WallpaperShader {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		f    Format
		want error
	}{
		{"bad trigger", "items:\n  - trigger: soon\n    wallpaper: {type: static, path: /a}\n", FormatYAML, domain.ErrConfig},
		{"bad type", "items:\n  - trigger: time:01:00\n    wallpaper: {type: gif, path: /a}\n", FormatYAML, domain.ErrWallpaper},
		{"web with path", "items:\n  - trigger: time:01:00\n    wallpaper: {type: web, path: /a}\n", FormatYAML, domain.ErrWallpaper},
		{"unknown field", "items:\n  - trigger: time:01:00\n    colour: red\n", FormatYAML, domain.ErrConfig},
		{"bad json", `{"items": [}`, FormatJSON, domain.ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), tt.f)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecode_EmptyYAML(t *testing.T) {
	items, err := Decode(strings.NewReader(""), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestFormatFor(t *testing.T) {
	if FormatFor("x.JSON") != FormatJSON {
		t.Error("x.JSON should be json")
	}
	if FormatFor("x.yml") != FormatYAML || FormatFor("x") != FormatYAML {
		t.Error("non-json extensions should be yaml")
	}
}
