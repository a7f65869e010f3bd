package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/google"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listsFormat string

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "List your Google Tasks lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(listsFormat); err != nil {
			return err
		}
		ctx := cmd.Context()
		creds, err := auth.Load(cfg.Dir, false)
		if err != nil {
			return err
		}
		if _, err := creds.Token(ctx); err != nil {
			return fmt.Errorf("not authenticated: %w", err)
		}
		client, err := google.NewClient(ctx, creds, google.DefaultList)
		if err != nil {
			return err
		}
		return printLists(ctx, stdout, client, cfg.TaskList, listsFormat)
	},
}

// printLists renders every list from l, marking the one named current.
func printLists(ctx context.Context, w io.Writer, l gateway.ListLister, current, format string) error {
	lists, err := l.ListTaskLists(ctx)
	if err != nil {
		return err
	}
	if done, err := encode(w, lists, format); done {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"", "Title", "ID"})
	for _, item := range lists {
		mark := ""
		if item.Title == current || item.ID == current {
			mark = okStyle("*")
		}
		t.AppendRow(table.Row{mark, item.Title, item.ID})
	}
	t.Render()
	return nil
}

func init() {
	listsCmd.Flags().StringVarP(&listsFormat, "format", "o", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(listsCmd)
}
