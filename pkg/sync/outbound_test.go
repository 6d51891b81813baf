package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/reminders"
)

func ownedDoc(id string, fields map[string]any) bob.Document {
	fields["ownerId"] = "u1"
	return bob.Document{ID: id, Fields: fields}
}

func day(offset int) time.Time {
	return time.Now().UTC().AddDate(0, 0, offset).Truncate(24 * time.Hour)
}

// The task's own due date wins over the sprint end,
// the sprint name decorates the title, and the story stays implicit.
func TestOutboundEffectiveEndAndTitle(t *testing.T) {
	due := day(3)
	sprintEnd := day(10)

	docs := newFakeDocs()
	docs.add(bob.Sprints, bob.Document{ID: "sp1", Fields: map[string]any{
		"name": "Sprint 12", "endDate": sprintEnd,
	}})
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{
		"title": "Q3 Launch", "sprintId": "sp1",
	}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Write report", "storyId": "s1", "dueDate": due,
	}))
	rems := newFakeRems()

	testEngine(docs, rems).Run(context.Background())

	if len(rems.items) != 1 {
		t.Fatalf("expected exactly one reminder (story has a child), got %d", len(rems.items))
	}
	rem := rems.items["rem-1"]
	if rem.Title != "[Sprint 12] Write report" {
		t.Errorf("unexpected title %q", rem.Title)
	}
	if rem.DueAt == nil || !rem.DueAt.Equal(due) {
		t.Errorf("expected due %v, got %v", due, rem.DueAt)
	}
	wantEnd := "End: " + due.Format("2006-01-02")
	if !strings.Contains(rem.Notes, wantEnd+"\n") {
		t.Errorf("expected %q in notes:\n%s", wantEnd, rem.Notes)
	}
	if strings.Contains(rem.Notes, sprintEnd.Format("2006-01-02")) {
		t.Errorf("sprint end leaked into metadata:\n%s", rem.Notes)
	}
	if !strings.Contains(rem.Notes, "Sprint: Sprint 12\n") {
		t.Errorf("expected sprint name in notes:\n%s", rem.Notes)
	}

	// The new reminder id is written back to the task document.
	task := docs.collections[bob.Tasks][0]
	if task.Fields["reminderId"] != "rem-1" {
		t.Errorf("reminder id not linked back, got %v", task.Fields["reminderId"])
	}
}

func TestOutboundIdempotent(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Sprints, bob.Document{ID: "sp1", Fields: map[string]any{
		"name": "Sprint 12", "startDate": day(-2), "endDate": day(10),
	}})
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{
		"title": "Q3 Launch", "sprintId": "sp1",
	}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Write report", "storyId": "s1", "dueDate": day(3),
	}))
	docs.add(bob.Stories, ownedDoc("s2", map[string]any{
		"title": "Solo story", "dueDate": day(5),
	}))
	rems := newFakeRems()
	engine := testEngine(docs, rems)

	engine.Run(context.Background())
	savesAfterFirst := rems.saves
	mergesAfterFirst := len(docs.merges)
	if savesAfterFirst == 0 {
		t.Fatal("first run should create reminders")
	}

	engine.Run(context.Background())
	if rems.saves != savesAfterFirst {
		t.Errorf("second run produced %d extra reminder writes", rems.saves-savesAfterFirst)
	}
	if len(docs.merges) != mergesAfterFirst {
		t.Errorf("second run produced extra document merges: %v", docs.merges)
	}
}

func TestStoryWithChildrenNeverMaterialized(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{
		"title": "Busy story", "dueDate": day(4), "status": 2,
	}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Child", "storyId": "s1",
	}))
	docs.add(bob.Stories, ownedDoc("s2", map[string]any{
		"title": "Idle story",
	}))
	rems := newFakeRems()

	testEngine(docs, rems).Run(context.Background())

	var titles []string
	for _, r := range rems.items {
		titles = append(titles, r.Title)
	}
	if len(rems.items) != 2 {
		t.Fatalf("expected reminders for the task and the childless story only, got %v", titles)
	}
	for _, r := range rems.items {
		if strings.Contains(r.Notes, "BOB-ID: story:s1") {
			t.Errorf("story with children got its own reminder: %q", r.Title)
		}
	}
	found := false
	for _, r := range rems.items {
		if strings.Contains(r.Notes, "BOB-ID: story:s2") {
			found = true
			if !strings.Contains(r.Title, "#story") {
				t.Errorf("childless story reminder missing #story tag: %q", r.Title)
			}
		}
	}
	if !found {
		t.Error("childless story was not materialized")
	}
}

func TestOutboundSkipsDeletedAndStorylessTasks(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story"}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Deleted", "storyId": "s1", "deleted": true,
	}))
	docs.add(bob.Tasks, ownedDoc("t2", map[string]any{
		"title": "No story",
	}))
	docs.add(bob.Tasks, ownedDoc("t3", map[string]any{
		"title": "Dangling story ref", "storyId": "ghost",
	}))
	rems := newFakeRems()

	testEngine(docs, rems).Run(context.Background())

	// t1 still counts as a child of s1 even though deleted, so s1 stays
	// suppressed and nothing at all syncs.
	if len(rems.items) != 0 {
		t.Errorf("expected no reminders, got %d", len(rems.items))
	}
}

func TestOutboundReusesLinkedReminder(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story"}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Renamed upstream", "storyId": "s1", "reminderId": "rem-9",
	}))
	rems := newFakeRems()
	rems.nextID = 9
	rems.items["rem-9"] = &reminders.Reminder{
		ID: "rem-9", CalendarID: "cal-1", Title: "Old title",
		Notes: "Task: Old title\nStory: s1\nGoal: -\nTheme: -\nStart: -\nEnd: -\nSprint: -\nBOB-ID: task:t1\n------\n[Auto-synced from BOB]",
	}

	testEngine(docs, rems).Run(context.Background())

	if len(rems.items) != 1 {
		t.Fatalf("expected the linked reminder to be reused, got %d entries", len(rems.items))
	}
	if rems.items["rem-9"].Title != "Old title" {
		t.Errorf("existing non-blank reminder title must win, got %q", rems.items["rem-9"].Title)
	}
	if len(docs.batches) != 0 {
		t.Errorf("unchanged reminder id must not queue a writeback, got %v", docs.batches)
	}
}

func TestOutboundRecreatesWhenLinkBroken(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story"}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Task", "storyId": "s1", "reminderId": "gone-42",
	}))
	rems := newFakeRems()

	testEngine(docs, rems).Run(context.Background())

	if len(rems.items) != 1 {
		t.Fatalf("expected a replacement reminder, got %d", len(rems.items))
	}
	if docs.collections[bob.Tasks][0].Fields["reminderId"] == "gone-42" {
		t.Error("stale reminder id was not replaced")
	}
}

func TestOutboundLeavesForeignNotesAlone(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story"}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Task", "storyId": "s1", "reminderId": "rem-1",
	}))
	rems := newFakeRems()
	rems.nextID = 1
	rems.items["rem-1"] = &reminders.Reminder{
		ID: "rem-1", CalendarID: "cal-1", Title: "Task",
		Notes: "the user's own grocery list",
	}

	testEngine(docs, rems).Run(context.Background())

	if rems.items["rem-1"].Notes != "the user's own grocery list" {
		t.Errorf("foreign note was overwritten: %q", rems.items["rem-1"].Notes)
	}
	if rems.saves != 0 {
		t.Errorf("foreign-note reminder must not be saved, got %d saves", rems.saves)
	}
}

func TestOutboundTimePrecision(t *testing.T) {
	timed := time.Date(2024, 6, 3, 15, 4, 0, 0, time.UTC)
	dateOnly := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story"}))
	docs.add(bob.Tasks, ownedDoc("t1", map[string]any{
		"title": "Timed", "storyId": "s1", "dueDate": timed, "startDate": dateOnly,
	}))
	rems := newFakeRems()

	testEngine(docs, rems).Run(context.Background())

	rem := rems.items["rem-1"]
	if rem == nil {
		t.Fatal("reminder not created")
	}
	if !rem.DueHasTime {
		t.Error("15:04 due date should carry time precision")
	}
	if rem.StartHasTime {
		t.Error("midnight start date should be date-only")
	}
	// Day precision only inside the metadata text.
	if strings.Contains(rem.Notes, "15:04") {
		t.Errorf("time of day leaked into metadata:\n%s", rem.Notes)
	}
}

func TestRunNoContextIsNoOp(t *testing.T) {
	docs := newFakeDocs()
	rems := newFakeRems()
	testEngine(docs, rems).Run(context.Background())
	if rems.saves != 0 || len(docs.merges) != 0 || len(docs.batches) != 0 {
		t.Error("empty context must produce no writes")
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	docs := newFakeDocs()
	docs.add(bob.Stories, ownedDoc("s1", map[string]any{"title": "Story", "dueDate": day(2)}))
	rems := newFakeRems()
	engine := New(docs, rems, discardLogger(), Options{Owner: "u1", List: "Reminders", DryRun: true})

	engine.Run(context.Background())

	if rems.saves != 0 || len(docs.merges) != 0 || len(docs.batches) != 0 {
		t.Error("dry run must not write to either store")
	}
}
