package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/bobhq/bobsync/pkg/decode"
	"github.com/bobhq/bobsync/pkg/model"
)

// Context is the read-only snapshot of one owner's planning data plus
// the relational indices both passes resolve against. It is loaded once
// per run and never mutated.
type Context struct {
	Owner string

	Tasks   []*model.Task
	Stories []*model.Story

	TaskByID   map[string]*model.Task
	StoryByID  map[string]*model.Story
	GoalByID   map[string]*model.Goal
	SprintByID map[string]*model.Sprint

	TaskByReminder  map[string]*model.Task
	StoryByReminder map[string]*model.Story

	// TasksPerStory counts child tasks; a story with children is never
	// materialized as its own reminder.
	TasksPerStory map[string]int
}

func (c *Context) Empty() bool {
	return len(c.Tasks) == 0 && len(c.Stories) == 0
}

// loadContext fetches and decodes everything for the owner, then loads
// only the goals and sprints actually referenced by a task or story.
func (e *Engine) loadContext(ctx context.Context) (*Context, error) {
	taskDocs, err := e.docs.TasksByOwner(ctx, e.opts.Owner)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	storyDocs, err := e.docs.StoriesByOwner(ctx, e.opts.Owner)
	if err != nil {
		return nil, fmt.Errorf("loading stories: %w", err)
	}

	sc := &Context{
		Owner:           e.opts.Owner,
		TaskByID:        map[string]*model.Task{},
		StoryByID:       map[string]*model.Story{},
		GoalByID:        map[string]*model.Goal{},
		SprintByID:      map[string]*model.Sprint{},
		TaskByReminder:  map[string]*model.Task{},
		StoryByReminder: map[string]*model.Story{},
		TasksPerStory:   map[string]int{},
	}

	skipped := 0
	for _, doc := range taskDocs {
		t, ok := decode.Task(doc)
		if !ok {
			skipped++
			continue
		}
		sc.Tasks = append(sc.Tasks, t)
		sc.TaskByID[t.ID] = t
		if t.ReminderID != "" {
			sc.TaskByReminder[t.ReminderID] = t
		}
		if t.StoryID != "" {
			sc.TasksPerStory[t.StoryID]++
		}
	}
	for _, doc := range storyDocs {
		s, ok := decode.Story(doc)
		if !ok {
			skipped++
			continue
		}
		sc.Stories = append(sc.Stories, s)
		sc.StoryByID[s.ID] = s
		if s.ReminderID != "" {
			sc.StoryByReminder[s.ReminderID] = s
		}
	}
	if skipped > 0 {
		e.log.Debug("skipped undecodable documents", "count", skipped)
	}

	goalIDs := map[string]bool{}
	sprintIDs := map[string]bool{}
	for _, t := range sc.Tasks {
		story := sc.StoryByID[t.StoryID]
		addID(goalIDs, t.GoalID)
		addID(sprintIDs, t.SprintID)
		if story != nil {
			addID(goalIDs, story.GoalID)
			addID(sprintIDs, story.SprintID)
		}
	}
	for _, s := range sc.Stories {
		addID(goalIDs, s.GoalID)
		addID(sprintIDs, s.SprintID)
	}

	goalDocs, err := e.docs.GoalsByIDs(ctx, keys(goalIDs))
	if err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	for _, doc := range goalDocs {
		if g, ok := decode.Goal(doc); ok {
			sc.GoalByID[g.ID] = g
		}
	}
	sprintDocs, err := e.docs.SprintsByIDs(ctx, keys(sprintIDs))
	if err != nil {
		return nil, fmt.Errorf("loading sprints: %w", err)
	}
	for _, doc := range sprintDocs {
		if sp, ok := decode.Sprint(doc); ok {
			sc.SprintByID[sp.ID] = sp
		}
	}
	return sc, nil
}

// EffectiveGoal resolves an entity's goal: its own reference first,
// then its story's. Childless stories pass a nil story.
func (c *Context) EffectiveGoal(goalID string, story *model.Story) *model.Goal {
	storyGoal := ""
	if story != nil {
		storyGoal = story.GoalID
	}
	return c.GoalByID[firstPresent(goalID, storyGoal)]
}

// EffectiveSprint mirrors EffectiveGoal for sprints.
func (c *Context) EffectiveSprint(sprintID string, story *model.Story) *model.Sprint {
	storySprint := ""
	if story != nil {
		storySprint = story.SprintID
	}
	return c.SprintByID[firstPresent(sprintID, storySprint)]
}

// firstPresent returns the first non-zero value in order. All three
// effective-value chains (own -> story -> sprint) reduce to it.
func firstPresent[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

func addID(set map[string]bool, id string) {
	if id != "" {
		set[id] = true
	}
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// dateTolerance absorbs floating point and timezone quantization noise:
// instants within it are not considered changed.
const dateTolerance = 60 * time.Second

func within(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	d := a.Sub(*b)
	if d < 0 {
		d = -d
	}
	return d <= dateTolerance
}
