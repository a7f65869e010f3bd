package cmd

import (
	"log"

	"github.com/harrisonrobin/gradesync/pkg/auth"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize gradesync to manage your Google Tasks",
	Long: `Removes any cached token and runs the OAuth consent flow. Place the
credentials.json of a Google Cloud desktop client in the config directory first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.RemoveToken(cfg.Dir); err != nil {
			return err
		}
		cache, err := auth.Load(cfg.Dir, true)
		if err != nil {
			return err
		}
		if _, err := cache.Token(cmd.Context()); err != nil {
			return err
		}
		log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
