package cmd

import (
	"fmt"

	"github.com/harrisonrobin/gradesync/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(cfg.Dir, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var configShowFormat string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(configShowFormat); err != nil {
			return err
		}
		view := map[string]any{
			"config_file":          config.GetConfigPath(cfg.Dir),
			"task_list":            cfg.TaskList,
			"store.backend":        cfg.Store.Backend,
			"store.path":           cfg.Store.Path,
			"sync.interval":        cfg.Sync.Interval.String(),
			"sync.auto":            cfg.Sync.Auto,
			"sync.cleanup_orphans": cfg.Sync.CleanupOrphans,
			"sync.dedupe":          cfg.Sync.Dedupe,
			"sync.input":           cfg.Sync.Input,
			"due.timezone":         cfg.Due.Timezone,
			"log_file":             cfg.LogFile,
		}
		format := configShowFormat
		if format == formatTable {
			format = formatYAML
		}
		_, err := encode(stdout, view, format)
		return err
	},
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "o", formatYAML, "output format: json or yaml")
	configCmd.AddCommand(configSetCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
