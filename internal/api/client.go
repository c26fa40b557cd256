package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aether-desk/aether/internal/domain"
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aether: %s (HTTP %d)", e.Message, e.Status)
}

// Client talks to a running daemon over the local API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the daemon listening at addr ("host:port"
// or a full URL).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{Timeout: 2 * time.Minute}}
}

// ─── Wallpaper ──────────────────────────────────────────────────────────────

// Apply replaces the active wallpaper.
func (c *Client) Apply(ctx context.Context, spec domain.WallpaperSpec) (domain.ActiveWallpaper, error) {
	var a domain.ActiveWallpaper
	err := c.do(ctx, http.MethodPost, "/api/wallpaper/", spec, &a)
	return a, err
}

// Active returns the slot's occupant. It returns an *APIError with status
// 404 when the slot is empty.
func (c *Client) Active(ctx context.Context) (domain.ActiveWallpaper, error) {
	var a domain.ActiveWallpaper
	err := c.do(ctx, http.MethodGet, "/api/wallpaper/", nil, &a)
	return a, err
}

func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/wallpaper/stop", nil, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/wallpaper/pause", nil, nil)
}

func (c *Client) Resume(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/wallpaper/resume", nil, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/wallpaper/clear", nil, nil)
}

// ─── Status ─────────────────────────────────────────────────────────────────

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var s StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &s)
	return s, err
}

// Health returns the check statuses. An unhealthy daemon answers 503 with
// the same body, so the response is decoded either way.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &h)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		return h, nil
	}
	return h, err
}

func (c *Client) Platform(ctx context.Context) (PlatformResponse, error) {
	var p PlatformResponse
	err := c.do(ctx, http.MethodGet, "/api/platform", nil, &p)
	return p, err
}

// ─── Schedule ───────────────────────────────────────────────────────────────

func (c *Client) Schedule(ctx context.Context) ([]domain.ScheduleItem, error) {
	var items []domain.ScheduleItem
	err := c.do(ctx, http.MethodGet, "/api/schedule/", nil, &items)
	return items, err
}

func (c *Client) AddItem(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	var out domain.ScheduleItem
	err := c.do(ctx, http.MethodPost, "/api/schedule/", item, &out)
	return out, err
}

// ReplaceSchedule swaps the whole list.
func (c *Client) ReplaceSchedule(ctx context.Context, items []domain.ScheduleItem) ([]domain.ScheduleItem, error) {
	var out []domain.ScheduleItem
	err := c.do(ctx, http.MethodPut, "/api/schedule/", items, &out)
	return out, err
}

func (c *Client) RemoveItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/schedule/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetEnabled(ctx context.Context, id string, enabled bool) (domain.ScheduleItem, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	var out domain.ScheduleItem
	err := c.do(ctx, http.MethodPost, "/api/schedule/"+url.PathEscape(id)+"/"+action, nil, &out)
	return out, err
}

// ─── Resources ──────────────────────────────────────────────────────────────

func (c *Client) Resources(ctx context.Context) (ResourcesResponse, error) {
	var r ResourcesResponse
	err := c.do(ctx, http.MethodGet, "/api/resources/", nil, &r)
	return r, err
}

func (c *Client) Register(ctx context.Context, id string, u domain.ResourceUsage) error {
	return c.do(ctx, http.MethodPost, "/api/resources/"+url.PathEscape(id), u, nil)
}

func (c *Client) UpdateResource(ctx context.Context, id string, u domain.ResourceUsage) error {
	return c.do(ctx, http.MethodPut, "/api/resources/"+url.PathEscape(id), u, nil)
}

// Unregister returns the usage that was released.
func (c *Client) Unregister(ctx context.Context, id string) (domain.ResourceUsage, error) {
	var u domain.ResourceUsage
	err := c.do(ctx, http.MethodDelete, "/api/resources/"+url.PathEscape(id), nil, &u)
	return u, err
}

// ─── Transport ──────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s (is `aether serve` running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
			apiErr.Type = env.Error.Type
		}
		// 503 from /api/health still carries a decodable body.
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
