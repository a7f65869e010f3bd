package cmd

import (
	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication and sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(statusFormat); err != nil {
			return err
		}
		creds, err := auth.Load(cfg.Dir, false)
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		orch := orchestrator.New(orchestrator.Config{
			Store:       st,
			Credentials: creds,
			TaskList:    cfg.TaskList,
		})
		return renderStatus(stdout, orch.Status(), statusFormat)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "o", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(statusCmd)
}
