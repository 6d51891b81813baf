// Package decode turns raw documents into typed entities. Decoding is
// pure: a record either yields an entity or is rejected, and rejection
// never aborts the batch.
package decode

import (
	"strings"
	"time"

	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/model"
)

// Field alias tables. Older documents used different key names for the
// same field; listing every accepted alias here keeps resolution a
// single declarative pass. Earlier aliases win.
var (
	taskAliases = map[string][]string{
		"title":       {"title", "name"},
		"description": {"description"},
		"status":      {"status"},
		"storyId":     {"storyId"},
		"parentType":  {"parentType"},
		"parentId":    {"parentId"},
		"goalId":      {"goalId"},
		"sprintId":    {"sprintId"},
		"startDate":   {"startDate", "startAt"},
		"dueDate":     {"dueDate", "endDate"},
		"theme":       {"theme"},
		"deleted":     {"deleted"},
		"reminderId":  {"reminderId"},
	}
	storyAliases = map[string][]string{
		"title":       {"title", "name"},
		"ref":         {"ref", "code"},
		"description": {"description"},
		"status":      {"status"},
		"goalId":      {"goalId"},
		"sprintId":    {"sprintId"},
		"startDate":   {"startDate"},
		"dueDate":     {"dueDate", "endDate"},
		"theme":       {"theme"},
		"reminderId":  {"reminderId"},
	}
	goalAliases = map[string][]string{
		"title": {"title", "name"},
		"theme": {"theme"},
	}
	sprintAliases = map[string][]string{
		"name":      {"name", "title"},
		"startDate": {"startDate", "start"},
		"endDate":   {"endDate", "end"},
	}
)

// Task decodes a raw task document. The boolean is false when the
// record lacks a usable title.
func Task(doc bob.Document) (*model.Task, bool) {
	f := fields{doc.Fields, taskAliases}
	title := strings.TrimSpace(f.str("title"))
	if title == "" {
		return nil, false
	}
	t := &model.Task{
		ID:          doc.ID,
		Title:       title,
		Description: f.str("description"),
		Status:      f.integer("status"),
		StoryID:     f.str("storyId"),
		GoalID:      f.str("goalId"),
		SprintID:    f.str("sprintId"),
		StartAt:     f.instant("startDate"),
		DueAt:       f.instant("dueDate"),
		Theme:       f.theme(),
		Deleted:     f.boolean("deleted"),
		ReminderID:  f.str("reminderId"),
	}
	// Legacy parent pair: only a "story"-typed parent counts.
	if t.StoryID == "" && f.str("parentType") == "story" {
		t.StoryID = f.str("parentId")
	}
	return t, true
}

func Story(doc bob.Document) (*model.Story, bool) {
	f := fields{doc.Fields, storyAliases}
	title := strings.TrimSpace(f.str("title"))
	if title == "" {
		return nil, false
	}
	return &model.Story{
		ID:          doc.ID,
		Title:       title,
		Ref:         f.str("ref"),
		Description: f.str("description"),
		Status:      f.integer("status"),
		GoalID:      f.str("goalId"),
		SprintID:    f.str("sprintId"),
		StartAt:     f.instant("startDate"),
		DueAt:       f.instant("dueDate"),
		Theme:       f.theme(),
		ReminderID:  f.str("reminderId"),
	}, true
}

func Goal(doc bob.Document) (*model.Goal, bool) {
	f := fields{doc.Fields, goalAliases}
	title := strings.TrimSpace(f.str("title"))
	if title == "" {
		return nil, false
	}
	return &model.Goal{ID: doc.ID, Title: title, Theme: f.theme()}, true
}

func Sprint(doc bob.Document) (*model.Sprint, bool) {
	f := fields{doc.Fields, sprintAliases}
	name := strings.TrimSpace(f.str("name"))
	if name == "" {
		return nil, false
	}
	return &model.Sprint{
		ID:      doc.ID,
		Name:    name,
		StartAt: f.instant("startDate"),
		EndAt:   f.instant("endDate"),
	}, true
}

// fields resolves canonical field names through an alias table. Each
// accessor walks the aliases in order and skips values of an unusable
// type, so a well-typed legacy alias still supplies the field.
type fields struct {
	raw     map[string]any
	aliases map[string][]string
}

func (f fields) str(field string) string {
	for _, alias := range f.aliases[field] {
		if s, ok := f.raw[alias].(string); ok {
			return s
		}
	}
	return ""
}

func (f fields) integer(field string) int {
	for _, alias := range f.aliases[field] {
		if n, ok := number(f.raw[alias]); ok {
			return int(n)
		}
	}
	return 0
}

func (f fields) boolean(field string) bool {
	for _, alias := range f.aliases[field] {
		if b, ok := f.raw[alias].(bool); ok {
			return b
		}
	}
	return false
}

func (f fields) instant(field string) *time.Time {
	for _, alias := range f.aliases[field] {
		if t := Instant(f.raw[alias]); t != nil {
			return t
		}
	}
	return nil
}

func (f fields) theme() model.Theme {
	for _, alias := range f.aliases["theme"] {
		switch v := f.raw[alias].(type) {
		case string:
			return model.ThemeFromName(v)
		default:
			if n, ok := number(v); ok {
				return model.ThemeFromCode(int(n))
			}
		}
	}
	return model.Theme{}
}
