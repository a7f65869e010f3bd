package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
)

func TestPrintLists(t *testing.T) {
	mem := gateway.NewMemory()
	mem.Lists = []model.TaskList{
		{ID: "list-default", Title: "My Tasks"},
		{ID: "list-school", Title: "School"},
	}

	var buf bytes.Buffer
	if err := printLists(context.Background(), &buf, mem, "School", formatTable); err != nil {
		t.Fatalf("printLists failed: %v", err)
	}
	for _, want := range []string{"My Tasks", "list-school", "*"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected table to contain %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := printLists(context.Background(), &buf, gateway.NewDryRun(mem), "", formatJSON); err != nil {
		t.Fatalf("printLists through dry run failed: %v", err)
	}
	var decoded []model.TaskList
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("Expected 2 lists as JSON, got %v (%v)", decoded, err)
	}
	if mem.CallCount("lists") != 2 {
		t.Errorf("Expected both calls to reach the gateway, got %d", mem.CallCount("lists"))
	}
}
