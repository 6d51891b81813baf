// Package reminders talks to the personal reminder store where synced
// entries live.
package reminders

import (
	"context"
	"time"
)

// Calendar is one reminder list.
type Calendar struct {
	ID    string
	Title string
}

// Reminder is one entry in a list. StartHasTime and DueHasTime record
// whether the instants carry time-of-day precision or are date-only.
type Reminder struct {
	ID         string
	CalendarID string
	Title      string
	Notes      string
	Completed  bool

	StartAt      *time.Time
	StartHasTime bool
	DueAt        *time.Time
	DueHasTime   bool
}

// Store is the narrow surface the sync engine needs from the reminder
// store.
type Store interface {
	Calendars(ctx context.Context) ([]Calendar, error)

	// DefaultCalendar resolves the list new reminders are created in.
	DefaultCalendar(ctx context.Context) (Calendar, error)

	// Get fetches an entry by its opaque identifier. A missing entry is
	// (nil, nil), not an error.
	Get(ctx context.Context, id string) (*Reminder, error)

	// Save creates the entry when ID is empty, updates it otherwise,
	// and returns the persisted entry with its identifier set.
	Save(ctx context.Context, r *Reminder) (*Reminder, error)

	// List returns all entries across the given calendars.
	List(ctx context.Context, calendarIDs []string) ([]*Reminder, error)
}
