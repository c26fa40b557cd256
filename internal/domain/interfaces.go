package domain

// ─── Store Interfaces ───────────────────────────────────────────────────────
// Infrastructure implements them; the scheduler depends on them.

// ScheduleStore persists the ordered schedule list.
type ScheduleStore interface {
	// LoadSchedule returns the items in their stored order.
	LoadSchedule() ([]ScheduleItem, error)

	// SaveSchedule replaces the stored list with items, atomically.
	SaveSchedule(items []ScheduleItem) error
}

// StateStore is a small key-value store for daemon state.
type StateStore interface {
	SetSetting(key, value string) error
	Setting(key string) (string, error)
}
