package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrisonrobin/gradesync/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configDir string
	listName  string
	verbose   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gradesync",
	Short: "Mirror Gradescope assignments into Google Tasks",
	Long: `gradesync reads the assignment export produced by the Gradescope scraper
and keeps one Google Tasks entry per assignment with a due date: it creates,
updates and repairs tasks, and can clean up tasks for assignments that are gone.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configDir == "" {
			dir, err := config.DefaultDir()
			if err != nil {
				return err
			}
			configDir = dir
		}
		loaded, err := config.Load(configDir)
		if err != nil {
			return err
		}
		if listName != "" {
			loaded.TaskList = listName
		}
		cfg = loaded
		setupLogging(cfg)
		return nil
	},
}

// setupLogging sends the standard logger to a rotating file when log_file is set.
func setupLogging(c *config.Config) {
	if c.LogFile == "" {
		return
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.config/gradesync)")
	rootCmd.PersistentFlags().StringVar(&listName, "list", "", "Google Tasks list to sync with (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every per-assignment decision")
}

// Execute runs the command tree until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
