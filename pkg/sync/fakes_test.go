package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/reminders"
)

// fakeDocs is an in-memory document store. Writes are applied to the
// stored documents so a second run observes them, and every write is
// recorded for assertions.
type fakeDocs struct {
	collections map[string][]bob.Document

	batches []string                    // collections ApplyBatch was called on
	merges  map[string][]map[string]any // collection/id -> applied sets
	failIDs map[string]bool             // ids whose Merge fails
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		collections: map[string][]bob.Document{},
		merges:      map[string][]map[string]any{},
		failIDs:     map[string]bool{},
	}
}

func (f *fakeDocs) add(collection string, doc bob.Document) {
	f.collections[collection] = append(f.collections[collection], doc)
}

func (f *fakeDocs) byOwner(collection, owner string) []bob.Document {
	var out []bob.Document
	for _, doc := range f.collections[collection] {
		if doc.Fields["ownerId"] == owner {
			out = append(out, doc)
		}
	}
	return out
}

func (f *fakeDocs) TasksByOwner(ctx context.Context, owner string) ([]bob.Document, error) {
	return f.byOwner(bob.Tasks, owner), nil
}

func (f *fakeDocs) StoriesByOwner(ctx context.Context, owner string) ([]bob.Document, error) {
	return f.byOwner(bob.Stories, owner), nil
}

func (f *fakeDocs) byIDs(collection string, ids []string) []bob.Document {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []bob.Document
	for _, doc := range f.collections[collection] {
		if want[doc.ID] {
			out = append(out, doc)
		}
	}
	return out
}

func (f *fakeDocs) GoalsByIDs(ctx context.Context, ids []string) ([]bob.Document, error) {
	return f.byIDs(bob.Goals, ids), nil
}

func (f *fakeDocs) SprintsByIDs(ctx context.Context, ids []string) ([]bob.Document, error) {
	return f.byIDs(bob.Sprints, ids), nil
}

func (f *fakeDocs) ApplyBatch(ctx context.Context, collection string, updates []bob.Update) error {
	f.batches = append(f.batches, collection)
	for _, u := range updates {
		f.apply(collection, u.ID, u.Set)
	}
	return nil
}

func (f *fakeDocs) Merge(ctx context.Context, collection, id string, set map[string]any) error {
	if f.failIDs[id] {
		return fmt.Errorf("simulated write failure for %s", id)
	}
	f.merges[collection+"/"+id] = append(f.merges[collection+"/"+id], set)
	f.apply(collection, id, set)
	return nil
}

func (f *fakeDocs) apply(collection, id string, set map[string]any) {
	for i, doc := range f.collections[collection] {
		if doc.ID != id {
			continue
		}
		for k, v := range set {
			switch v {
			case bob.ServerTimestamp:
				f.collections[collection][i].Fields[k] = time.Now().UTC()
			case bob.DeleteField:
				delete(f.collections[collection][i].Fields, k)
			default:
				f.collections[collection][i].Fields[k] = v
			}
		}
	}
}

func (f *fakeDocs) mergedSet(collection, id string) map[string]any {
	sets := f.merges[collection+"/"+id]
	if len(sets) == 0 {
		return nil
	}
	return sets[len(sets)-1]
}

// fakeRems is an in-memory reminder store keeping exact instants, so
// engine-level idempotence is observable through its write counter.
type fakeRems struct {
	calendars []reminders.Calendar
	items     map[string]*reminders.Reminder
	nextID    int
	saves     int
}

func newFakeRems() *fakeRems {
	return &fakeRems{
		calendars: []reminders.Calendar{{ID: "cal-1", Title: "Reminders"}},
		items:     map[string]*reminders.Reminder{},
	}
}

func (f *fakeRems) Calendars(ctx context.Context) ([]reminders.Calendar, error) {
	return f.calendars, nil
}

func (f *fakeRems) DefaultCalendar(ctx context.Context) (reminders.Calendar, error) {
	return f.calendars[0], nil
}

func (f *fakeRems) Get(ctx context.Context, id string) (*reminders.Reminder, error) {
	r, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRems) Save(ctx context.Context, r *reminders.Reminder) (*reminders.Reminder, error) {
	f.saves++
	cp := *r
	if cp.ID == "" {
		f.nextID++
		cp.ID = fmt.Sprintf("rem-%d", f.nextID)
	}
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRems) List(ctx context.Context, calendarIDs []string) ([]*reminders.Reminder, error) {
	want := map[string]bool{}
	for _, id := range calendarIDs {
		want[id] = true
	}
	var out []*reminders.Reminder
	for _, r := range f.items {
		if want[r.CalendarID] {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func testEngine(docs *fakeDocs, rems *fakeRems) *Engine {
	return New(docs, rems, discardLogger(), Options{Owner: "u1", List: "Reminders"})
}
