package model

import "time"

// Goal is a top-level aspiration a story or task can point at.
type Goal struct {
	ID    string
	Title string
	Theme Theme
}

// Sprint is a bounded calendar window.
type Sprint struct {
	ID      string
	Name    string
	StartAt *time.Time
	EndAt   *time.Time
}
