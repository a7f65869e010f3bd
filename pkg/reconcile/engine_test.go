package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/store"
)

var testNow = time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, seed ...model.RemoteTask) (*Engine, *gateway.Memory, *store.FileStore) {
	t.Helper()
	gw := gateway.NewMemory(seed...)
	st := store.NewMemory()
	e := NewEngine(Config{
		Gateway: gw,
		Store:   st,
		Payload: PayloadBuilder{Location: time.UTC},
		Now:     func() time.Time { return testNow },
	})
	return e, gw, st
}

func assignment(id, title, abbr string, due bool) model.Assignment {
	a := model.Assignment{
		ID:         id,
		Title:      title,
		FullTitle:  model.ComposeFullTitle("MATH 303", title, abbr),
		Status:     "No Submission",
		StatusAbbr: abbr,
		CourseName: "MATH 303",
	}
	if abbr == model.StatusSubmitted {
		a.Status = "Submitted"
	}
	if due {
		a.DueDate = model.NewDueDate(time.Date(2025, 8, 27, 23, 59, 0, 0, time.UTC))
	}
	return a
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, gw, _ := newTestEngine(t)
	batch := []model.Assignment{
		assignment("1", "HW 1", "IP", true),
		assignment("2", "HW 2", "SUBMITTED", true),
		assignment("3", "Reading", "IP", false),
	}

	first := e.Reconcile(ctx, batch, Options{})
	for i, r := range first[:2] {
		if !r.Success || r.Action != model.ActionCreated {
			t.Fatalf("first pass result %d: expected created, got %+v", i, r)
		}
	}
	if first[2].SkippedReason != model.SkipNoDueDate {
		t.Errorf("Expected no_due_date skip, got %+v", first[2])
	}

	second := e.Reconcile(ctx, batch, Options{})
	for i, r := range second[:2] {
		if r.SkippedReason != model.SkipUpToDate {
			t.Errorf("second pass result %d: expected up_to_date skip, got %+v", i, r)
		}
	}
	if gw.CallCount("create") != 2 || gw.CallCount("update") != 0 {
		t.Errorf("Expected exactly 2 creates and no updates, got %v", gw.Calls)
	}
}

func TestReconcileConvergesDuplicates(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "IP", true)
	e, gw, st := newTestEngine(t,
		model.RemoteTask{ID: "dupTask00001", Title: a.FullTitle, Notes: ProvenanceMarker},
		model.RemoteTask{ID: "dupTask00002", Title: a.FullTitle, Notes: ProvenanceMarker},
		model.RemoteTask{ID: "dupTask00003", Title: a.FullTitle},
		model.RemoteTask{ID: "unrelated001", Title: "Groceries"},
	)

	results := e.Reconcile(ctx, []model.Assignment{a}, Options{})
	if !results[0].Success {
		t.Fatalf("Expected success, got %+v", results[0])
	}

	tasks, _ := gw.List(ctx)
	var matching []model.RemoteTask
	for _, task := range tasks {
		if task.Title == a.FullTitle {
			matching = append(matching, task)
		}
	}
	if len(matching) != 1 {
		t.Fatalf("Expected exactly 1 task titled %q, got %d", a.FullTitle, len(matching))
	}
	entry, ok := st.Get("1")
	if !ok || entry.RemoteTaskID != matching[0].ID {
		t.Errorf("Expected store to map to %s, got %+v", matching[0].ID, entry)
	}
	if _, ok := gw.Task("unrelated001"); !ok {
		t.Errorf("Unrelated task must survive")
	}
}

func TestReconcileKeepsMappedTaskAmongDuplicates(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "SUBMITTED", true)
	e, gw, st := newTestEngine(t,
		model.RemoteTask{ID: "mappedTask01", Title: a.FullTitle},
		model.RemoteTask{ID: "dupTask00001", Title: a.FullTitle},
	)
	st.Set("1", store.Entry{RemoteTaskID: "mappedTask01", LastStatus: "IP"})

	results := e.Reconcile(ctx, []model.Assignment{a}, Options{})
	if results[0].Action != model.ActionUpdated {
		t.Fatalf("Expected update of mapped task, got %+v", results[0])
	}
	if _, ok := gw.Task("dupTask00001"); ok {
		t.Errorf("Expected duplicate to be deleted")
	}
	if _, ok := gw.Task("mappedTask01"); !ok {
		t.Errorf("Expected mapped task to be kept")
	}
}

func TestReconcileHealsExternalDeletion(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "IP", true)
	e, gw, st := newTestEngine(t)
	st.Set("1", store.Entry{RemoteTaskID: "goneTask0001", LastStatus: "IP", LastSync: testNow})

	results := e.Reconcile(ctx, []model.Assignment{a}, Options{})
	r := results[0]
	if !r.Success || r.RemoteTask == nil {
		t.Fatalf("Expected successful recreation, got %+v", r)
	}
	entry, _ := st.Get("1")
	if entry.RemoteTaskID == "goneTask0001" || entry.RemoteTaskID != r.RemoteTask.ID {
		t.Errorf("Expected entry to point at new task %s, got %+v", r.RemoteTask.ID, entry)
	}
	if gw.Len() != 1 {
		t.Errorf("Expected exactly one remote task, got %d", gw.Len())
	}
}

func TestReconcileNeverWritesWithoutDueDate(t *testing.T) {
	ctx := context.Background()
	e, gw, _ := newTestEngine(t)
	batch := []model.Assignment{assignment("1", "HW 1", "IP", false), assignment("", "HW 2", "IP", false)}

	for pass := 0; pass < 3; pass++ {
		for _, r := range e.Reconcile(ctx, batch, Options{Force: pass == 2}) {
			if r.SkippedReason != model.SkipNoDueDate {
				t.Errorf("pass %d: expected no_due_date skip, got %+v", pass, r)
			}
		}
	}
	if gw.CallCount("create") != 0 || gw.CallCount("update") != 0 {
		t.Errorf("Expected no writes, got %v", gw.Calls)
	}
}

func TestReconcileStatusChangeUpdates(t *testing.T) {
	ctx := context.Background()
	e, gw, _ := newTestEngine(t)

	e.Reconcile(ctx, []model.Assignment{assignment("1", "HW 1", "IP", true)}, Options{})
	results := e.Reconcile(ctx, []model.Assignment{assignment("1", "HW 1", "SUBMITTED", true)}, Options{})

	if gw.CallCount("update") != 1 {
		t.Fatalf("Expected exactly one update, got %v", gw.Calls)
	}
	r := results[0]
	if r.Action != model.ActionUpdated || r.RemoteTask.Status != model.TaskCompleted {
		t.Errorf("Expected update to completed, got %+v", r)
	}
	if gw.CallCount("create") != 1 {
		t.Errorf("Expected no additional create, got %v", gw.Calls)
	}
}

func TestReconcilePartialFailure(t *testing.T) {
	ctx := context.Background()
	e, gw, _ := newTestEngine(t)
	batch := []model.Assignment{
		assignment("1", "HW 1", "IP", true),
		assignment("2", "HW 2", "IP", true),
		assignment("3", "HW 3", "IP", true),
	}
	gw.Fail = func(op, id string, payload *model.TaskPayload) error {
		if op == "create" && payload.Title == batch[1].FullTitle {
			return gateway.NewError("create task", 503, "backend unavailable")
		}
		return nil
	}

	results := e.Reconcile(ctx, batch, Options{})
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results[0].Success || !results[2].Success {
		t.Errorf("Expected #1 and #3 to succeed, got %+v / %+v", results[0], results[2])
	}
	if results[1].Success || !strings.Contains(results[1].ErrorMessage, "transient") {
		t.Errorf("Expected #2 to fail with a transient error, got %+v", results[1])
	}
}

func TestReconcileMalformedIDRecreates(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "SUBMITTED", true)
	e, gw, st := newTestEngine(t)
	st.Set("1", store.Entry{RemoteTaskID: "bad id!", LastStatus: "IP"})

	r := e.Reconcile(ctx, []model.Assignment{a}, Options{})[0]
	if r.Action != model.ActionRecreated {
		t.Errorf("Expected recreated, got %+v", r)
	}
	if gw.CallCount("get") != 0 {
		t.Errorf("Malformed id must not be fetched, got %v", gw.Calls)
	}
	entry, _ := st.Get("1")
	if entry.RemoteTaskID != r.RemoteTask.ID {
		t.Errorf("Expected new mapping, got %+v", entry)
	}
}

func TestReconcileUpdateFailureFallsBackToCreate(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "SUBMITTED", true)
	e, gw, st := newTestEngine(t, model.RemoteTask{ID: "mappedTask01", Title: "MATH 303: HW 1 (IP)"})
	st.Set("1", store.Entry{RemoteTaskID: "mappedTask01", LastStatus: "IP"})
	gw.Fail = func(op, id string, payload *model.TaskPayload) error {
		if op == "update" {
			return gateway.NewError("update task "+id, 400, "bad request")
		}
		return nil
	}

	r := e.Reconcile(ctx, []model.Assignment{a}, Options{})[0]
	if !r.Success || r.Action != model.ActionRecreated {
		t.Fatalf("Expected fallback create, got %+v", r)
	}
	entry, _ := st.Get("1")
	if entry.RemoteTaskID == "mappedTask01" {
		t.Errorf("Expected mapping to move to the new task")
	}
}

func TestReconcileForceBypassesStaleness(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "IP", true)
	e, gw, _ := newTestEngine(t)
	e.Reconcile(ctx, []model.Assignment{a}, Options{})

	r := e.Reconcile(ctx, []model.Assignment{a}, Options{Force: true})[0]
	if r.Action != model.ActionUpdated {
		t.Errorf("Expected forced update, got %+v", r)
	}
	if gw.CallCount("update") != 1 {
		t.Errorf("Expected one update, got %v", gw.Calls)
	}
}

func TestReconcileWithoutIDIsAlwaysNew(t *testing.T) {
	ctx := context.Background()
	a := assignment("", "HW 1", "IP", true)
	e, gw, st := newTestEngine(t)

	e.Reconcile(ctx, []model.Assignment{a}, Options{})
	r := e.Reconcile(ctx, []model.Assignment{a}, Options{})[0]
	if r.Action != model.ActionCreated {
		t.Errorf("Expected untrackable assignment to be created again, got %+v", r)
	}
	if gw.Len() != 1 {
		t.Errorf("Expected duplicate cleanup to keep a single task, got %d", gw.Len())
	}
	if len(st.All()) != 0 {
		t.Errorf("Expected nothing stored for an assignment without id")
	}
}

func TestReconcileCancelledBetweenAssignments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, gw, _ := newTestEngine(t)

	results := e.Reconcile(ctx, []model.Assignment{assignment("1", "HW 1", "IP", true)}, Options{})
	if len(results) != 1 || results[0].Success {
		t.Errorf("Expected one failed result, got %+v", results)
	}
	if gw.CallCount("create") != 0 {
		t.Errorf("Expected no writes after cancellation")
	}
}

func TestSweepOrphans(t *testing.T) {
	ctx := context.Background()
	e, gw, st := newTestEngine(t,
		model.RemoteTask{ID: "orphanTaskA1", Title: "X", Notes: "Assignment from MATH 303\n\n" + ProvenanceMarker},
		model.RemoteTask{ID: "personalTask", Title: "Y", Notes: "buy milk"},
	)
	st.Set("old", store.Entry{RemoteTaskID: "orphanTaskA1", LastStatus: "IP"})

	current := []model.Assignment{{ID: "9", FullTitle: "Z", StatusAbbr: "IP"}}
	report, err := e.SweepOrphans(ctx, current)
	if err != nil {
		t.Fatalf("SweepOrphans failed: %v", err)
	}
	if len(report.Deleted) != 1 || report.Deleted[0].ID != "orphanTaskA1" {
		t.Errorf("Expected only A to be deleted, got %+v", report.Deleted)
	}
	if _, ok := gw.Task("personalTask"); !ok {
		t.Errorf("Unmarked task must be left alone")
	}
	if _, ok := st.Get("old"); ok || report.ClearedEntries != 1 {
		t.Errorf("Expected entry pointing at A to be scrubbed")
	}
}

// Matching is by title only: a marked task whose title equals a current
// assignment's title survives even when it belongs to another assignment.
func TestSweepOrphansTitleCollision(t *testing.T) {
	ctx := context.Background()
	e, gw, _ := newTestEngine(t,
		model.RemoteTask{ID: "otherCourse1", Title: "MATH 303: HW 1 (IP)", Notes: ProvenanceMarker},
	)
	report, err := e.SweepOrphans(ctx, []model.Assignment{assignment("1", "HW 1", "IP", true)})
	if err != nil {
		t.Fatalf("SweepOrphans failed: %v", err)
	}
	if len(report.Deleted) != 0 || gw.Len() != 1 {
		t.Errorf("Expected colliding title to be treated as current, got %+v", report.Deleted)
	}
}

func TestSweepDuplicates(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "IP", true)
	e, gw, st := newTestEngine(t,
		model.RemoteTask{ID: "firstTask001", Title: a.FullTitle},
		model.RemoteTask{ID: "secondTask01", Title: a.FullTitle},
		model.RemoteTask{ID: "thirdTask001", Title: a.FullTitle},
	)

	report, err := e.SweepDuplicates(ctx, []model.Assignment{a})
	if err != nil {
		t.Fatalf("SweepDuplicates failed: %v", err)
	}
	if len(report.Deleted) != 2 || gw.Len() != 1 {
		t.Fatalf("Expected 2 deletions leaving 1 task, got %d deleted, %d left", len(report.Deleted), gw.Len())
	}
	entry, ok := st.Get("1")
	if !ok || entry.RemoteTaskID != "firstTask001" || entry.LastStatus != "" {
		t.Errorf("Expected kept task to be mapped for repair, got %+v", entry)
	}

	// The repaired mapping is updated on the next pass rather than recreated.
	r := e.Reconcile(ctx, []model.Assignment{a}, Options{})[0]
	if r.Action != model.ActionUpdated || r.RemoteTask.ID != "firstTask001" {
		t.Errorf("Expected update of kept task, got %+v", r)
	}
}

func TestFindDuplicatesExcludesMapped(t *testing.T) {
	ctx := context.Background()
	a := assignment("1", "HW 1", "IP", true)
	e, _, st := newTestEngine(t,
		model.RemoteTask{ID: "mappedTask01", Title: a.FullTitle},
		model.RemoteTask{ID: "dupTask00001", Title: a.FullTitle},
	)
	st.Set("1", store.Entry{RemoteTaskID: "mappedTask01", LastStatus: "IP"})

	dups, err := e.FindDuplicates(ctx, a)
	if err != nil {
		t.Fatalf("FindDuplicates failed: %v", err)
	}
	if len(dups) != 1 || dups[0].ID != "dupTask00001" {
		t.Errorf("Expected only the unmapped duplicate, got %+v", dups)
	}
}
