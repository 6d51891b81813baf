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

// outbound projects every syncable task, then every childless story,
// into the reminder store, queueing linked-identifier writebacks and
// applying them in one batch per collection at the end.
func (e *Engine) outbound(ctx context.Context, sc *Context) error {
	cal, err := e.rems.DefaultCalendar(ctx)
	if err != nil {
		return fmt.Errorf("resolving default list: %w", err)
	}

	var taskUpdates, storyUpdates []bob.Update
	saved, unchanged := 0, 0

	for _, t := range sc.Tasks {
		if t.Deleted {
			continue
		}
		story := sc.StoryByID[t.StoryID]
		if story == nil {
			e.log.Debug("task has no resolvable story, skipping", "task", t.ID)
			continue
		}
		rem, err := e.locate(ctx, t.ReminderID, cal)
		if err != nil {
			return err
		}
		if foreignNote(rem) {
			e.log.Warn("linked reminder has a foreign note, leaving it alone", "task", t.ID, "reminder", rem.ID)
			continue
		}
		before := snapshot(rem)
		e.fillTask(rem, sc, t, story)
		e.logValidation(metadata.EntityTask, t.ID, rem.Notes)
		if rem.ID != "" && !changed(before, rem) {
			unchanged++
			continue
		}
		persisted, err := e.save(ctx, rem)
		if err != nil {
			return fmt.Errorf("saving reminder for task %s: %w", t.ID, err)
		}
		saved++
		if persisted.ID != t.ReminderID {
			taskUpdates = append(taskUpdates, bob.Update{
				ID:  t.ID,
				Set: map[string]any{"reminderId": persisted.ID},
			})
		}
	}

	for _, s := range sc.Stories {
		if sc.TasksPerStory[s.ID] > 0 {
			// Represented through its tasks.
			continue
		}
		rem, err := e.locate(ctx, s.ReminderID, cal)
		if err != nil {
			return err
		}
		if foreignNote(rem) {
			e.log.Warn("linked reminder has a foreign note, leaving it alone", "story", s.ID, "reminder", rem.ID)
			continue
		}
		before := snapshot(rem)
		e.fillStory(rem, sc, s)
		e.logValidation(metadata.EntityStory, s.ID, rem.Notes)
		if rem.ID != "" && !changed(before, rem) {
			unchanged++
			continue
		}
		persisted, err := e.save(ctx, rem)
		if err != nil {
			return fmt.Errorf("saving reminder for story %s: %w", s.ID, err)
		}
		saved++
		if persisted.ID != s.ReminderID {
			storyUpdates = append(storyUpdates, bob.Update{
				ID:  s.ID,
				Set: map[string]any{"reminderId": persisted.ID},
			})
		}
	}

	if !e.opts.DryRun {
		if len(taskUpdates) > 0 {
			if err := e.docs.ApplyBatch(ctx, bob.Tasks, taskUpdates); err != nil {
				return fmt.Errorf("writing back task reminder ids: %w", err)
			}
		}
		if len(storyUpdates) > 0 {
			if err := e.docs.ApplyBatch(ctx, bob.Stories, storyUpdates); err != nil {
				return fmt.Errorf("writing back story reminder ids: %w", err)
			}
		}
	}

	e.log.Info("outbound pass complete",
		"saved", saved,
		"unchanged", unchanged,
		"linked", len(taskUpdates)+len(storyUpdates))
	return nil
}

// locate reuses the stored linked reminder when it still resolves and
// otherwise hands back a fresh entry in the default list.
func (e *Engine) locate(ctx context.Context, reminderID string, cal reminders.Calendar) (*reminders.Reminder, error) {
	if reminderID != "" {
		rem, err := e.rems.Get(ctx, reminderID)
		if err != nil {
			return nil, fmt.Errorf("fetching reminder %s: %w", reminderID, err)
		}
		if rem != nil {
			return rem, nil
		}
	}
	return &reminders.Reminder{CalendarID: cal.ID}, nil
}

func (e *Engine) fillTask(rem *reminders.Reminder, sc *Context, t *model.Task, story *model.Story) {
	goal := sc.EffectiveGoal(t.GoalID, story)
	sprint := sc.EffectiveSprint(t.SprintID, story)
	sprintName, sprintStart, sprintEnd := sprintParts(sprint)

	rem.Title = titles.Compose(rem.Title, t.Title, sprintName, false)
	rem.Completed = t.Done()
	start := firstPresent(t.StartAt, story.StartAt, sprintStart)
	end := firstPresent(t.DueAt, story.DueAt, sprintEnd)
	assignInstant(&rem.StartAt, &rem.StartHasTime, start)
	assignInstant(&rem.DueAt, &rem.DueHasTime, end)

	rem.Notes = metadata.Encode(metadata.Fields{
		Type:        metadata.EntityTask,
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Story:       firstPresent(story.Ref, story.ID),
		StoryName:   story.Title,
		Goal:        goalTitle(goal),
		Theme:       effectiveTheme(t.Theme, story, goal),
		Start:       start,
		End:         end,
		Sprint:      sprintName,
	})
}

func (e *Engine) fillStory(rem *reminders.Reminder, sc *Context, s *model.Story) {
	goal := sc.EffectiveGoal(s.GoalID, nil)
	sprint := sc.EffectiveSprint(s.SprintID, nil)
	sprintName, sprintStart, sprintEnd := sprintParts(sprint)

	rem.Title = titles.Compose(rem.Title, s.Title, sprintName, true)
	rem.Completed = s.Done()
	start := firstPresent(s.StartAt, sprintStart)
	end := firstPresent(s.DueAt, sprintEnd)
	assignInstant(&rem.StartAt, &rem.StartHasTime, start)
	assignInstant(&rem.DueAt, &rem.DueHasTime, end)

	rem.Notes = metadata.Encode(metadata.Fields{
		Type:      metadata.EntityStory,
		ID:        s.ID,
		Title:     s.Title,
		Story:     firstPresent(s.Ref, s.ID),
		StoryName: s.Title,
		Goal:      goalTitle(goal),
		Theme:     effectiveTheme(s.Theme, nil, goal),
		Start:     start,
		End:       end,
		Sprint:    sprintName,
	})
}

func (e *Engine) logValidation(entity metadata.EntityType, id, note string) {
	for _, issue := range metadata.Validate(note) {
		e.log.Warn("metadata validation issue", "entity", string(entity), "id", id, "issue", issue)
	}
}

func (e *Engine) save(ctx context.Context, rem *reminders.Reminder) (*reminders.Reminder, error) {
	if e.opts.DryRun {
		e.log.Info("dry run: would save reminder", "id", rem.ID, "title", rem.Title)
		return rem, nil
	}
	return e.rems.Save(ctx, rem)
}

// foreignNote reports whether an existing reminder carries a note this
// tool did not write. Such notes are never overwritten.
func foreignNote(rem *reminders.Reminder) bool {
	return rem.ID != "" && rem.Notes != "" && !metadata.IsSystemNote(rem.Notes)
}

// assignInstant writes a source instant into a reminder-native date
// slot. A non-midnight time-of-day means time precision; midnight means
// date-only. An absent source clears the slot.
func assignInstant(dst **time.Time, hasTime *bool, src *time.Time) {
	if src == nil {
		*dst = nil
		*hasTime = false
		return
	}
	v := *src
	*dst = &v
	*hasTime = v.Hour() != 0 || v.Minute() != 0
}

func sprintParts(sprint *model.Sprint) (string, *time.Time, *time.Time) {
	if sprint == nil {
		return "", nil, nil
	}
	return sprint.Name, sprint.StartAt, sprint.EndAt
}

func goalTitle(goal *model.Goal) string {
	if goal == nil {
		return ""
	}
	return goal.Title
}

// effectiveTheme prefers the entity's own theme, then its story's, then
// its goal's.
func effectiveTheme(own model.Theme, story *model.Story, goal *model.Goal) string {
	if !own.Absent() {
		return own.Display()
	}
	if story != nil && !story.Theme.Absent() {
		return story.Theme.Display()
	}
	if goal != nil {
		return goal.Theme.Display()
	}
	return ""
}

// reminderState is the field set compared for update suppression.
type reminderState struct {
	title     string
	notes     string
	completed bool
	start     *time.Time
	due       *time.Time
}

func snapshot(rem *reminders.Reminder) reminderState {
	return reminderState{
		title:     rem.Title,
		notes:     rem.Notes,
		completed: rem.Completed,
		start:     rem.StartAt,
		due:       rem.DueAt,
	}
}

// changed applies the update-suppression rules: exact compare on text
// fields, tolerance compare on dates.
func changed(before reminderState, rem *reminders.Reminder) bool {
	return before.title != rem.Title ||
		before.notes != rem.Notes ||
		before.completed != rem.Completed ||
		!within(before.start, rem.StartAt) ||
		!within(before.due, rem.DueAt)
}
