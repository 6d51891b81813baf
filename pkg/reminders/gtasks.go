package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

// GoogleTasks implements Store on the Google Tasks API. Task lists play
// the calendar role; tasks are the reminder entries. Reminder IDs are
// opaque "<listID>/<taskID>" composites because task identifiers are
// only unique within a list.
//
// The API has no start field and only keeps the date part of Due, so
// StartAt is dropped on save and due times flatten to the day. The full
// instant still travels inside the metadata block, so nothing is lost
// across a round trip.
type GoogleTasks struct {
	srv         *tasks.Service
	defaultList string
}

func NewGoogleTasks(srv *tasks.Service, defaultList string) *GoogleTasks {
	return &GoogleTasks{srv: srv, defaultList: defaultList}
}

func (g *GoogleTasks) Calendars(ctx context.Context) ([]Calendar, error) {
	var cals []Calendar
	err := g.srv.Tasklists.List().Pages(ctx, func(page *tasks.TaskLists) error {
		for _, item := range page.Items {
			cals = append(cals, Calendar{ID: item.Id, Title: item.Title})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing task lists: %w", err)
	}
	return cals, nil
}

func (g *GoogleTasks) DefaultCalendar(ctx context.Context) (Calendar, error) {
	if g.defaultList != "" {
		cals, err := g.Calendars(ctx)
		if err != nil {
			return Calendar{}, err
		}
		for _, cal := range cals {
			if cal.Title == g.defaultList {
				return cal, nil
			}
		}
	}
	list, err := g.srv.Tasklists.Get("@default").Context(ctx).Do()
	if err != nil {
		return Calendar{}, fmt.Errorf("resolving default task list: %w", err)
	}
	return Calendar{ID: list.Id, Title: list.Title}, nil
}

func (g *GoogleTasks) Get(ctx context.Context, id string) (*Reminder, error) {
	listID, taskID, ok := strings.Cut(id, "/")
	if !ok {
		return nil, nil
	}
	t, err := g.srv.Tasks.Get(listID, taskID).Context(ctx).Do()
	if err != nil {
		if apiErr, isAPI := err.(*googleapi.Error); isAPI && apiErr.Code == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching task %s: %w", id, err)
	}
	return fromTask(listID, t), nil
}

func (g *GoogleTasks) Save(ctx context.Context, r *Reminder) (*Reminder, error) {
	t := toTask(r)
	if r.ID == "" {
		created, err := g.srv.Tasks.Insert(r.CalendarID, t).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("creating task in list %s: %w", r.CalendarID, err)
		}
		return fromTask(r.CalendarID, created), nil
	}
	listID, taskID, ok := strings.Cut(r.ID, "/")
	if !ok {
		return nil, fmt.Errorf("malformed reminder id %q", r.ID)
	}
	updated, err := g.srv.Tasks.Patch(listID, taskID, t).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", r.ID, err)
	}
	return fromTask(listID, updated), nil
}

func (g *GoogleTasks) List(ctx context.Context, calendarIDs []string) ([]*Reminder, error) {
	var rems []*Reminder
	for _, listID := range calendarIDs {
		err := g.srv.Tasks.List(listID).
			ShowCompleted(true).
			ShowHidden(true).
			Pages(ctx, func(page *tasks.Tasks) error {
				for _, t := range page.Items {
					rems = append(rems, fromTask(listID, t))
				}
				return nil
			})
		if err != nil {
			return nil, fmt.Errorf("listing tasks in %s: %w", listID, err)
		}
	}
	return rems, nil
}

func toTask(r *Reminder) *tasks.Task {
	t := &tasks.Task{
		Title: r.Title,
		Notes: r.Notes,
	}
	if r.Completed {
		t.Status = "completed"
	} else {
		t.Status = "needsAction"
	}
	if r.DueAt != nil {
		t.Due = r.DueAt.UTC().Format(time.RFC3339)
	} else {
		t.NullFields = append(t.NullFields, "Due")
	}
	return t
}

func fromTask(listID string, t *tasks.Task) *Reminder {
	r := &Reminder{
		ID:         listID + "/" + t.Id,
		CalendarID: listID,
		Title:      t.Title,
		Notes:      t.Notes,
		Completed:  t.Status == "completed",
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			due = due.UTC()
			r.DueAt = &due
			r.DueHasTime = due.Hour() != 0 || due.Minute() != 0
		}
	}
	return r
}
