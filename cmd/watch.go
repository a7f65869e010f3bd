package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/harrisonrobin/gradesync/pkg/watch"
	"github.com/spf13/cobra"
)

var (
	watchInput    string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync periodically and whenever the assignment export changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := watchInput
		if input == "" {
			input = cfg.Sync.Input
		}
		if input == "" || input == "-" {
			return fmt.Errorf("watch needs an export file: pass --input or set sync.input")
		}
		interval := cfg.Sync.Interval
		if cmd.Flags().Changed("interval") {
			interval = watchInterval
		} else if !cfg.Sync.Auto {
			interval = 0
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		trigger := func(ctx context.Context, reason string) error {
			assignments, err := readAssignments(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}
			log.Printf("Starting %s sync of %d assignment(s)", reason, len(assignments))
			_, err = a.orch.SyncNow(ctx, assignments, configOptions(cfg))
			return err
		}

		s, err := watch.New(watch.Config{
			Interval: interval,
			File:     input,
			Trigger:  trigger,
		})
		if err != nil {
			return err
		}
		log.Printf("Watching %s (interval %v); press Ctrl+C to stop", input, interval)
		return s.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchInput, "input", "i", "", "assignment export file (default sync.input)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Hour, "time between periodic syncs, 0 to disable (default sync.interval)")
	rootCmd.AddCommand(watchCmd)
}
