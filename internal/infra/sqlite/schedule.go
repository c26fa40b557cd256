package sqlite

import (
	"fmt"

	"github.com/aether-desk/aether/internal/domain"
)

// ─── Schedule Repository ────────────────────────────────────────────────────

const scheduleColumns = `id, trigger_kind, trigger_value, enabled, name, description, author, version, type, path, url`

// LoadSchedule returns the stored items in position order.
func (d *DB) LoadSchedule() ([]domain.ScheduleItem, error) {
	rows, err := d.db.Query(`SELECT ` + scheduleColumns + ` FROM schedule_items ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ScheduleItem
	for rows.Next() {
		item, err := scanScheduleItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveSchedule replaces the stored list with items in one transaction.
func (d *DB) SaveSchedule(items []domain.ScheduleItem) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM schedule_items`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO schedule_items (position, ` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		w := it.Wallpaper
		_, err := stmt.Exec(i, it.ID, it.Trigger.Kind.String(), it.Trigger.Value(), it.Enabled,
			w.Name, w.Description, w.Author, w.Version, w.Type.String(), w.Path, w.URL)
		if err != nil {
			return fmt.Errorf("save schedule item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

func scanScheduleItem(s scanner) (domain.ScheduleItem, error) {
	var item domain.ScheduleItem
	var kind, value, typ string
	w := &item.Wallpaper
	err := s.Scan(&item.ID, &kind, &value, &item.Enabled,
		&w.Name, &w.Description, &w.Author, &w.Version, &typ, &w.Path, &w.URL)
	if err != nil {
		return item, err
	}
	if item.Trigger, err = domain.NewTrigger(kind, value); err != nil {
		return item, fmt.Errorf("schedule item %s: %w", item.ID, err)
	}
	if w.Type, err = domain.ParseWallpaperType(typ); err != nil {
		return item, fmt.Errorf("schedule item %s: %w", item.ID, err)
	}
	return item, nil
}
