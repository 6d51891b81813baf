package model

import "time"

// Task status codes as stored in the tasks collection.
const (
	TaskStatusOpen       = 0
	TaskStatusInProgress = 1
	TaskStatusDone       = 2
)

// Task is one actionable item, always owned by a single account.
// Snapshots are read-only for the duration of a sync run; changes are
// expressed as field-update payloads, never by mutating the struct.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      int
	// StoryID is the resolved parent story: the direct reference when
	// present, otherwise the legacy parentType/parentId pair.
	StoryID    string
	GoalID     string
	SprintID   string
	StartAt    *time.Time
	DueAt      *time.Time
	Theme      Theme
	Deleted    bool
	ReminderID string
}

func (t *Task) Done() bool {
	return t.Status == TaskStatusDone
}
