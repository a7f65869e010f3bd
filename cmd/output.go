package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harrisonrobin/gradesync/pkg/model"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

var (
	okStyle   = color.New(color.FgGreen).SprintFunc()
	skipStyle = color.New(color.FgYellow).SprintFunc()
	failStyle = color.New(color.FgRed, color.Bold).SprintFunc()
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

// encode writes v as JSON or YAML. It reports false for the table format.
func encode(w io.Writer, v any, format string) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func renderResults(w io.Writer, results []model.SyncResult, format string) error {
	if done, err := encode(w, results, format); done {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Assignment", "Action", "Task", "Detail"})
	for _, r := range results {
		action := string(r.Action)
		var taskID, detail string
		if r.RemoteTask != nil {
			taskID = r.RemoteTask.ID
		}
		switch {
		case !r.Success:
			action = failStyle(action)
			detail = r.ErrorMessage
		case r.Skipped():
			action = skipStyle(action)
			detail = string(r.SkippedReason)
		default:
			action = okStyle(action)
		}
		t.AppendRow(table.Row{r.AssignmentTitle, action, taskID, detail})
	}
	t.Render()

	s := orchestrator.Summarize(results)
	fmt.Fprintf(w, "%s created, %s updated, %s skipped, %s failed\n",
		okStyle(s.Created), okStyle(s.Updated), skipStyle(s.Skipped), failStyle(s.Failed))
	return nil
}

func renderStatus(w io.Writer, st orchestrator.Status, format string) error {
	if done, err := encode(w, st, format); done {
		return err
	}

	last := "never"
	if st.LastSyncTime != nil {
		last = st.LastSyncTime.Local().Format(time.DateTime)
	}
	auth := failStyle("no")
	if st.IsAuthenticated {
		auth = okStyle("yes")
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Task list", st.TaskList},
		{"Authenticated", auth},
		{"Synced assignments", st.SyncedCount},
		{"Last sync", last},
	})
	if st.LastRunID != "" {
		t.AppendRow(table.Row{"Last run", st.LastRunID})
	}
	t.Render()
	return nil
}
