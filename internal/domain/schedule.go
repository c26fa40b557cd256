package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TriggerKind classifies what makes a schedule item fire.
type TriggerKind int

const (
	TriggerTime        TriggerKind = iota // Wall-clock hour and minute
	TriggerInterval                       // Every N
	TriggerSystemEvent                    // Named OS event (logged only)
	TriggerCustom                         // Named custom hook (logged only)
)

// String returns the wire name of the kind.
func (k TriggerKind) String() string {
	switch k {
	case TriggerTime:
		return "time"
	case TriggerInterval:
		return "interval"
	case TriggerSystemEvent:
		return "system_event"
	case TriggerCustom:
		return "custom"
	default:
		return "unknown"
	}
}

func parseTriggerKind(s string) (TriggerKind, error) {
	switch strings.ToLower(s) {
	case "time":
		return TriggerTime, nil
	case "interval":
		return TriggerInterval, nil
	case "system_event", "event":
		return TriggerSystemEvent, nil
	case "custom":
		return TriggerCustom, nil
	}
	return 0, fmt.Errorf("%w: unknown trigger kind %q", ErrConfig, s)
}

// Trigger is a tagged union. Only the fields of its Kind are meaningful.
type Trigger struct {
	Kind   TriggerKind
	Hour   int
	Minute int
	Every  time.Duration
	Name   string
}

// TimeTrigger fires at hour:minute local time.
func TimeTrigger(hour, minute int) Trigger {
	return Trigger{Kind: TriggerTime, Hour: hour, Minute: minute}
}

// IntervalTrigger fires every d.
func IntervalTrigger(d time.Duration) Trigger {
	return Trigger{Kind: TriggerInterval, Every: d}
}

// SystemEventTrigger names an OS event.
func SystemEventTrigger(name string) Trigger {
	return Trigger{Kind: TriggerSystemEvent, Name: name}
}

// CustomTrigger names a custom hook.
func CustomTrigger(name string) Trigger {
	return Trigger{Kind: TriggerCustom, Name: name}
}

// Validate checks the payload of the trigger's kind.
func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerTime:
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("%w: time trigger %02d:%02d out of range", ErrConfig, t.Hour, t.Minute)
		}
	case TriggerInterval:
		if t.Every <= 0 {
			return fmt.Errorf("%w: interval trigger needs a positive duration", ErrConfig)
		}
	case TriggerSystemEvent, TriggerCustom:
		if t.Name == "" {
			return fmt.Errorf("%w: %s trigger needs a name", ErrConfig, t.Kind)
		}
	default:
		return fmt.Errorf("%w: invalid trigger kind %d", ErrConfig, int(t.Kind))
	}
	return nil
}

// Value returns the kind-specific payload in its textual form:
// "HH:MM", a Go duration, or the event name.
func (t Trigger) Value() string {
	switch t.Kind {
	case TriggerTime:
		return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	case TriggerInterval:
		return t.Every.String()
	default:
		return t.Name
	}
}

// String renders the trigger in the form accepted by ParseTrigger.
func (t Trigger) String() string {
	return t.Kind.String() + ":" + t.Value()
}

// NewTrigger builds a trigger from a kind name and its textual payload.
func NewTrigger(kind, value string) (Trigger, error) {
	k, err := parseTriggerKind(kind)
	if err != nil {
		return Trigger{}, err
	}
	var t Trigger
	switch k {
	case TriggerTime:
		h, m, err := parseClock(value)
		if err != nil {
			return Trigger{}, err
		}
		t = TimeTrigger(h, m)
	case TriggerInterval:
		d, err := time.ParseDuration(value)
		if err != nil {
			return Trigger{}, fmt.Errorf("%w: interval %q: %v", ErrConfig, value, err)
		}
		t = IntervalTrigger(d)
	case TriggerSystemEvent:
		t = SystemEventTrigger(value)
	case TriggerCustom:
		t = CustomTrigger(value)
	}
	return t, t.Validate()
}

// ParseTrigger parses "time:08:00", "interval:30m", "event:login" or
// "custom:name".
func ParseTrigger(s string) (Trigger, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Trigger{}, fmt.Errorf("%w: trigger %q must be kind:value", ErrConfig, s)
	}
	return NewTrigger(kind, value)
}

func parseClock(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrConfig, s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time %q: bad hour", ErrConfig, s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time %q: bad minute", ErrConfig, s)
	}
	return h, m, nil
}

type triggerJSON struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// MarshalJSON encodes the trigger as {"kind": ..., "value": ...}.
func (t Trigger) MarshalJSON() ([]byte, error) {
	return json.Marshal(triggerJSON{Kind: t.Kind.String(), Value: t.Value()})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (t *Trigger) UnmarshalJSON(b []byte) error {
	var raw triggerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := NewTrigger(raw.Kind, raw.Value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ScheduleItem binds a trigger to a wallpaper.
type ScheduleItem struct {
	ID        string        `json:"id"`
	Trigger   Trigger       `json:"trigger"`
	Wallpaper WallpaperSpec `json:"wallpaper"`
	Enabled   bool          `json:"enabled"`
}

// Validate checks both the trigger and the wallpaper spec.
func (i ScheduleItem) Validate() error {
	if err := i.Trigger.Validate(); err != nil {
		return err
	}
	return i.Wallpaper.Validate()
}
