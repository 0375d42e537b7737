package commands

import (
	"context"
	"fmt"
	"os"

	"h5p-downloader/lib/restyutil"
	"h5p-downloader/lib/scrapers/h5p/core"
	"h5p-downloader/lib/telemetry"

	"github.com/spf13/cobra"
)

var debug *bool

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging and http exchange dumps.")
}

var rootCmd = &cobra.Command{
	Use:   "h5p-cli",
	Short: "h5p-cli batch-downloads .h5p content packages from an H5P platform.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
		if *debug {
			core.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty"))
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
