package model

import "time"

// Story status codes. Stories carry a wider range than tasks and use a
// different completion threshold: anything at or past StoryStatusDone
// counts as complete.
const (
	StoryStatusBacklog    = 0
	StoryStatusPlanned    = 1
	StoryStatusInProgress = 2
	StoryStatusDone       = 3
	StoryStatusArchived   = 4
)

// Story groups zero or more tasks under one goal and sprint. A story
// with at least one task is represented in the reminder store through
// its tasks only; childless stories get their own reminder entry.
type Story struct {
	ID          string
	Title       string
	Ref         string
	Description string
	Status      int
	GoalID      string
	SprintID    string
	StartAt     *time.Time
	DueAt       *time.Time
	Theme       Theme
	ReminderID  string
}

func (s *Story) Done() bool {
	return s.Status >= StoryStatusDone
}
