package reconcile

import (
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
)

func TestBuildTaskPayload(t *testing.T) {
	pacific, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	due := time.Date(2025, 8, 28, 0, 30, 0, 0, time.UTC) // 5:30 PM on the 27th in Pacific time
	a := model.Assignment{
		ID:         "4567",
		Title:      "Homework 1",
		FullTitle:  "  MATH 303: Homework 1 (IP)  ",
		Status:     "No Submission",
		StatusAbbr: "IP",
		DueDate:    model.NewDueDate(due),
		CourseName: "MATH 303",
	}

	payload, err := PayloadBuilder{Location: pacific}.Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if payload.Title != "MATH 303: Homework 1 (IP)" {
		t.Errorf("Expected trimmed title, got %q", payload.Title)
	}
	if payload.Status != model.TaskNeedsAction {
		t.Errorf("Expected needsAction, got %s", payload.Status)
	}
	if payload.Due != "2025-08-27T00:00:00.000Z" {
		t.Errorf("Expected date-only due on the local calendar day, got %s", payload.Due)
	}
	for _, want := range []string{"Assignment from MATH 303", "Status: No Submission", "⏰ Due Time: 5:30 PM", ProvenanceMarker} {
		if !strings.Contains(payload.Notes, want) {
			t.Errorf("Expected notes to contain %q, got: %s", want, payload.Notes)
		}
	}
}

func TestBuildTaskPayloadCompleted(t *testing.T) {
	a := model.Assignment{FullTitle: "X", StatusAbbr: "SUBMITTED", DueDate: model.NewDueDate(time.Now())}
	payload, err := PayloadBuilder{}.Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if payload.Status != model.TaskCompleted {
		t.Errorf("Expected completed, got %s", payload.Status)
	}
}

func TestBuildTaskPayloadDueDropsSubSecond(t *testing.T) {
	a := model.Assignment{
		FullTitle:  "X",
		StatusAbbr: "IP",
		DueDate:    model.NewDueDate(time.Date(2025, 8, 27, 23, 59, 59, 500_000_000, time.UTC)),
	}
	payload, err := PayloadBuilder{Location: time.UTC}.Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if payload.Due != "2025-08-27T00:00:00.000Z" {
		t.Errorf("Expected date-only due, got %q", payload.Due)
	}
}

func TestBuildTaskPayloadInvalidDue(t *testing.T) {
	a := model.Assignment{FullTitle: "X", StatusAbbr: "IP", DueDate: model.ParseDueDate("someday")}
	payload, err := PayloadBuilder{}.Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if payload.Due != "" {
		t.Errorf("Expected due to be omitted, got %q", payload.Due)
	}
	if strings.Contains(payload.Notes, "Due Time") {
		t.Errorf("Expected no due time line, got: %s", payload.Notes)
	}
}

func TestBuildTaskPayloadEmptyTitle(t *testing.T) {
	_, err := PayloadBuilder{}.Build(model.Assignment{FullTitle: "   "})
	if !errors.Is(err, gateway.ErrInvalidPayload) {
		t.Errorf("Expected ErrInvalidPayload, got %v", err)
	}
}

func TestTruncation(t *testing.T) {
	a := model.Assignment{
		FullTitle:  strings.Repeat("t", 2000),
		Status:     strings.Repeat("s", 9000),
		StatusAbbr: "IP",
		DueDate:    model.NewDueDate(time.Now()),
	}
	payload, err := PayloadBuilder{}.Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if n := utf8.RuneCountInString(payload.Title); n != TitleLimit {
		t.Errorf("Expected title of %d characters, got %d", TitleLimit, n)
	}
	if !strings.HasSuffix(payload.Title, Ellipsis) {
		t.Errorf("Expected truncated title to end with %q", Ellipsis)
	}
	if n := utf8.RuneCountInString(payload.Notes); n != NotesLimit {
		t.Errorf("Expected notes of %d characters, got %d", NotesLimit, n)
	}
	if !strings.HasSuffix(payload.Notes, ProvenanceMarker) {
		t.Errorf("Expected truncated notes to keep the provenance marker")
	}
}

func TestValidRemoteID(t *testing.T) {
	valid := []string{"MTIzNDU2Nzg5MDEyMzQ1Njc4OTA", "memtask00000001", "abc_def-123"}
	invalid := []string{"", "short", "has space inside", "calendar-event@google.com", strings.Repeat("a", 200)}
	for _, id := range valid {
		if !ValidRemoteID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if ValidRemoteID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}
