package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
	"gopkg.in/yaml.v3"
)

var sampleResults = []model.SyncResult{
	{AssignmentID: "1", AssignmentTitle: "HW 1", Success: true, Action: model.ActionCreated, RemoteTask: &model.RemoteTask{ID: "task00000001", Title: "CS 101: HW 1 (IP)"}},
	{AssignmentID: "2", AssignmentTitle: "HW 2", Success: true, Action: model.ActionSkipped, SkippedReason: model.SkipNoDueDate},
	{AssignmentID: "3", AssignmentTitle: "HW 3", Success: false, Action: model.ActionFailed, ErrorMessage: "create task: transient remote failure (HTTP 503)"},
}

func TestRenderResultsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := renderResults(&buf, sampleResults, formatTable); err != nil {
		t.Fatalf("renderResults failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"HW 1", "task00000001", "no_due_date", "HTTP 503", "created"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderResults(&buf, sampleResults, formatJSON); err != nil {
		t.Fatalf("renderResults failed: %v", err)
	}
	var decoded []model.SyncResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if len(decoded) != 3 || decoded[1].SkippedReason != model.SkipNoDueDate {
		t.Errorf("Unexpected decoded results: %+v", decoded)
	}
}

func TestRenderStatusYAML(t *testing.T) {
	last := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	st := orchestrator.Status{SyncedCount: 4, LastSyncTime: &last, IsAuthenticated: true, TaskList: "School"}

	var buf bytes.Buffer
	if err := renderStatus(&buf, st, formatYAML); err != nil {
		t.Fatalf("renderStatus failed: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not YAML: %v", err)
	}
	if decoded["syncedCount"] != 4 || decoded["taskList"] != "School" {
		t.Errorf("Unexpected status: %v", decoded)
	}
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatJSON, formatYAML} {
		if err := checkFormat(f); err != nil {
			t.Errorf("checkFormat(%s) failed: %v", f, err)
		}
	}
	if err := checkFormat("xml"); err == nil {
		t.Errorf("Expected xml to be rejected")
	}
}

func TestReadAssignmentsFromStdin(t *testing.T) {
	old := stdin
	defer func() { stdin = old }()
	stdin = strings.NewReader(`{"courseName":"CS 101","assignments":[{"id":"1","title":"HW 1","status":"Submitted","dueDate":"2025-09-01T17:00:00Z"}]}`)

	got, err := readAssignments("-")
	if err != nil {
		t.Fatalf("readAssignments failed: %v", err)
	}
	if len(got) != 1 || got[0].FullTitle != "CS 101: HW 1 (SUBMITTED)" {
		t.Errorf("Unexpected assignments: %+v", got)
	}
}
