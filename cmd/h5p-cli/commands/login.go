package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var loginConfig *string

func init() {
	loginConfig = loginCmd.Flags().String("config", "config.json5", "Path to the json5 config file.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--config <config.json5>]",
	Short: "Validates the configured credentials and persists a session, without downloading anything.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig(*loginConfig)
		client := createClient(cmd.Context(), cfg)
		slog.Info("login succeeded", "platform", client.BaseUrl.String(), "username", cfg.Username)
	},
}
