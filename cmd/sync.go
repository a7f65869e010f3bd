package cmd

import (
	"errors"
	"fmt"

	"github.com/harrisonrobin/gradesync/pkg/config"
	"github.com/harrisonrobin/gradesync/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var (
	syncInput          string
	syncForce          bool
	syncCleanupOrphans bool
	syncDedupe         bool
	syncDryRun         bool
	syncFormat         string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass over the assignment export",
	Long: `Reads the scraper export (JSON envelope, array, NDJSON or YAML; "-" reads
JSON from stdin) and creates or updates one task per assignment with a due date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := syncInput
		if input == "" {
			input = cfg.Sync.Input
		}
		if input == "" {
			return errors.New("no input: pass --input or set sync.input")
		}
		if err := checkFormat(syncFormat); err != nil {
			return err
		}

		assignments, err := readAssignments(input)
		if err != nil {
			return fmt.Errorf("reading %s: %w", input, err)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, syncDryRun)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := configOptions(cfg)
		opts.Force = syncForce
		if cmd.Flags().Changed("cleanup-orphans") {
			opts.CleanupOrphans = syncCleanupOrphans
		}
		if cmd.Flags().Changed("dedupe") {
			opts.Dedupe = syncDedupe
		}
		results, err := a.orch.SyncNow(ctx, assignments, opts)
		if err != nil {
			return err
		}
		if syncDryRun {
			fmt.Fprintln(stdout, "Dry run: no changes were written.")
		}
		return renderResults(stdout, results, syncFormat)
	},
}

// configOptions derives the sweep switches from the config file.
func configOptions(c *config.Config) orchestrator.Options {
	return orchestrator.Options{
		CleanupOrphans: c.Sync.CleanupOrphans,
		Dedupe:         c.Sync.Dedupe,
	}
}

func init() {
	syncCmd.Flags().StringVarP(&syncInput, "input", "i", "", "assignment export file, or - for stdin (default sync.input)")
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "resync every assignment with a due date, even if up to date")
	syncCmd.Flags().BoolVar(&syncCleanupOrphans, "cleanup-orphans", false, "delete synced tasks whose assignment is gone (default sync.cleanup_orphans)")
	syncCmd.Flags().BoolVar(&syncDedupe, "dedupe", false, "collapse duplicate tasks before syncing (default sync.dedupe)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show what would change without writing anything")
	syncCmd.Flags().StringVarP(&syncFormat, "format", "o", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(syncCmd)
}
