package commands

import (
	"log/slog"

	"h5p-downloader/lib/records"
	"h5p-downloader/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <planner.csv>",
	Short: "Converts a course planner export into the hierarchical record format.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputPath, stats, err := records.ConvertPlanner(args[0])
		if err != nil {
			serviceutil.Fatal("failed to convert planner export", err)
		}
		slog.Info(
			"planner export converted",
			"output", outputPath,
			"converted", stats.Converted,
			"skipped_zip", stats.SkippedZip,
			"skipped_other", stats.SkippedOther,
		)
	},
}
