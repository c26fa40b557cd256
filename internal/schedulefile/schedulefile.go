// Package schedulefile reads and writes schedule lists as YAML or JSON
// documents, for import and export from the CLI.
package schedulefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aether-desk/aether/internal/domain"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from a file extension. Unknown extensions are YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is the on-disk shape. Triggers are written in their
// "kind:value" form so files stay hand-editable.
type Document struct {
	Items []Item `yaml:"items" json:"items"`
}

// Item is one schedule entry in a document.
type Item struct {
	ID        string    `yaml:"id,omitempty" json:"id,omitempty"`
	Trigger   string    `yaml:"trigger" json:"trigger"`
	Enabled   *bool     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Wallpaper Wallpaper `yaml:"wallpaper" json:"wallpaper"`
}

// Wallpaper mirrors domain.WallpaperSpec with a string type.
type Wallpaper struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Type        string `yaml:"type" json:"type"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Decode parses a document. Items without "enabled" are enabled.
func Decode(r io.Reader, f Format) ([]domain.ScheduleItem, error) {
	var doc Document
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: parse schedule json: %v", domain.ErrConfig, err)
		}
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: parse schedule yaml: %v", domain.ErrConfig, err)
		}
	}
	return doc.toDomain()
}

func (d Document) toDomain() ([]domain.ScheduleItem, error) {
	items := make([]domain.ScheduleItem, 0, len(d.Items))
	for i, it := range d.Items {
		trig, err := domain.ParseTrigger(it.Trigger)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		typ, err := domain.ParseWallpaperType(it.Wallpaper.Type)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		item := domain.ScheduleItem{
			ID:      it.ID,
			Trigger: trig,
			Enabled: it.Enabled == nil || *it.Enabled,
			Wallpaper: domain.WallpaperSpec{
				Name:        it.Wallpaper.Name,
				Description: it.Wallpaper.Description,
				Author:      it.Wallpaper.Author,
				Version:     it.Wallpaper.Version,
				Type:        typ,
				Path:        it.Wallpaper.Path,
				URL:         it.Wallpaper.URL,
			},
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Encode writes items as a document.
func Encode(w io.Writer, f Format, items []domain.ScheduleItem) error {
	doc := Document{Items: make([]Item, 0, len(items))}
	for _, it := range items {
		enabled := it.Enabled
		s := it.Wallpaper
		doc.Items = append(doc.Items, Item{
			ID:      it.ID,
			Trigger: it.Trigger.String(),
			Enabled: &enabled,
			Wallpaper: Wallpaper{
				Name: s.Name, Description: s.Description, Author: s.Author, Version: s.Version,
				Type: s.Type.String(), Path: s.Path, URL: s.URL,
			},
		})
	}

	if f == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// ReadFile decodes the document at path.
func ReadFile(path string) ([]domain.ScheduleItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data), FormatFor(path))
}

// WriteFile encodes items to path, replacing it.
func WriteFile(path string, items []domain.ScheduleItem) error {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatFor(path), items); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
