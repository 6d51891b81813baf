package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/metadata"
	"github.com/bobhq/bobsync/pkg/model"
	"github.com/bobhq/bobsync/pkg/reminders"
	"github.com/bobhq/bobsync/pkg/titles"
)

type docMerge struct {
	id  string
	set map[string]any
}

// inbound walks every reminder in the relevant lists and folds edits
// back into the documents. Merges are applied per-document so one
// failure never blocks the rest.
func (e *Engine) inbound(ctx context.Context, sc *Context) error {
	calIDs, err := e.inboundCalendars(ctx)
	if err != nil {
		return err
	}
	rems, err := e.rems.List(ctx, calIDs)
	if err != nil {
		return fmt.Errorf("listing reminders: %w", err)
	}

	var taskMerges, storyMerges []docMerge
	for _, rem := range rems {
		f, ok := metadata.Parse(rem.Notes)
		if !ok {
			if metadata.IsSystemNote(rem.Notes) {
				e.log.Warn("marked note failed to parse, possible corruption", "reminder", rem.ID)
			}
			continue
		}
		switch f.Type {
		case metadata.EntityTask:
			if set := e.mergeTask(sc, rem, f); set != nil {
				taskMerges = append(taskMerges, docMerge{id: f.ID, set: set})
			}
		case metadata.EntityStory:
			if set := e.mergeStory(sc, rem, f); set != nil {
				storyMerges = append(storyMerges, docMerge{id: f.ID, set: set})
			}
		}
	}

	applied := 0
	applied += e.applyMerges(ctx, bob.Tasks, taskMerges)
	applied += e.applyMerges(ctx, bob.Stories, storyMerges)
	e.log.Info("inbound pass complete", "reminders", len(rems), "updates", applied)
	return nil
}

// inboundCalendars resolves the lists to scan: every list named in the
// config, falling back to the default list.
func (e *Engine) inboundCalendars(ctx context.Context) ([]string, error) {
	cals, err := e.rems.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reminder lists: %w", err)
	}
	wanted := map[string]bool{}
	if e.opts.List != "" {
		wanted[e.opts.List] = true
	}
	for _, title := range e.opts.ExtraLists {
		wanted[title] = true
	}
	var ids []string
	for _, cal := range cals {
		if wanted[cal.Title] {
			ids = append(ids, cal.ID)
		}
	}
	if len(ids) > 0 {
		return ids, nil
	}
	cal, err := e.rems.DefaultCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving default list: %w", err)
	}
	return []string{cal.ID}, nil
}

func (e *Engine) applyMerges(ctx context.Context, collection string, merges []docMerge) int {
	applied := 0
	for _, m := range merges {
		if e.opts.DryRun {
			e.log.Info("dry run: would update document", "collection", collection, "id", m.id)
			continue
		}
		if err := e.docs.Merge(ctx, collection, m.id, m.set); err != nil {
			e.log.Error("applying inbound update", "collection", collection, "id", m.id, "err", err)
			continue
		}
		applied++
	}
	return applied
}

// mergeTask diffs one reminder against its task and returns the field
// updates, or nil when nothing changed. Title precedence: the block's
// recorded title first, then the tag-stripped reminder title.
func (e *Engine) mergeTask(sc *Context, rem *reminders.Reminder, f *metadata.Fields) map[string]any {
	t := sc.TaskByID[f.ID]
	if t == nil {
		// Deleted or not owned by this account; never resurrect
		// records from orphaned reminders.
		e.log.Debug("reminder references unknown task", "id", f.ID, "reminder", rem.ID)
		return nil
	}

	set := map[string]any{}
	if f.Title != "" && f.Title != t.Title {
		set["title"] = f.Title
	} else if n := titles.Normalize(rem.Title); n != "" && n != t.Title {
		set["title"] = n
	}
	if f.Description != t.Description {
		set["description"] = f.Description
	}
	if t.ReminderID != rem.ID {
		set["reminderId"] = rem.ID
	}
	mergeDue(set, f, rem, t.DueAt)
	if rem.Completed && !t.Done() {
		set["status"] = model.TaskStatusDone
	}
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = bob.ServerTimestamp
	return set
}

// mergeStory is the story-side merge. Unlike tasks, the tag-stripped
// reminder title is consulted before the block's recorded title; the
// asymmetry is load-bearing for users who retitle story reminders
// directly.
func (e *Engine) mergeStory(sc *Context, rem *reminders.Reminder, f *metadata.Fields) map[string]any {
	s := sc.StoryByID[f.ID]
	if s == nil {
		e.log.Debug("reminder references unknown story", "id", f.ID, "reminder", rem.ID)
		return nil
	}

	set := map[string]any{}
	if n := titles.Normalize(rem.Title); n != "" && n != s.Title {
		set["title"] = n
	} else if f.Title != "" && f.Title != s.Title {
		set["title"] = f.Title
	}
	if s.ReminderID != rem.ID {
		set["reminderId"] = rem.ID
	}
	mergeDue(set, f, rem, s.DueAt)
	if rem.Completed && !s.Done() {
		set["status"] = model.StoryStatusDone
	}
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = bob.ServerTimestamp
	return set
}

// mergeDue compares the block's end date, falling back to the native
// due date, against the stored value with the sync tolerance. A changed
// value writes epoch milliseconds; a cleared value deletes the field.
func mergeDue(set map[string]any, f *metadata.Fields, rem *reminders.Reminder, stored *time.Time) {
	newEnd := f.End
	if newEnd == nil {
		newEnd = rem.DueAt
	}
	if within(newEnd, stored) {
		return
	}
	if newEnd == nil {
		set["dueDate"] = bob.DeleteField
	} else {
		set["dueDate"] = newEnd.UnixMilli()
	}
}

// ReportCompletion applies a single reminder's completion flip to the
// owning record: the task linked to it first, then the story. No match
// in either collection is a silent no-op.
func (e *Engine) ReportCompletion(ctx context.Context, sc *Context, reminderID string, completed bool) {
	if t := sc.TaskByReminder[reminderID]; t != nil {
		status := model.TaskStatusOpen
		if completed {
			status = model.TaskStatusDone
		}
		e.mergeStatus(ctx, bob.Tasks, t.ID, status)
		return
	}
	if s := sc.StoryByReminder[reminderID]; s != nil {
		status := model.StoryStatusInProgress
		if completed {
			status = model.StoryStatusDone
		}
		e.mergeStatus(ctx, bob.Stories, s.ID, status)
	}
}

func (e *Engine) mergeStatus(ctx context.Context, collection, id string, status int) {
	set := map[string]any{"status": status, "updatedAt": bob.ServerTimestamp}
	if e.opts.DryRun {
		e.log.Info("dry run: would update status", "collection", collection, "id", id, "status", status)
		return
	}
	if err := e.docs.Merge(ctx, collection, id, set); err != nil {
		e.log.Error("reporting completion", "collection", collection, "id", id, "err", err)
	}
}
