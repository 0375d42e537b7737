package commands

import (
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"time"

	"h5p-downloader/lib/records"
	"h5p-downloader/lib/serviceutil"
	"h5p-downloader/services/downloader"
	"h5p-downloader/services/downloader/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var downloadConfig *string
var downloadCsv *string

func init() {
	downloadConfig = downloadCmd.Flags().String("config", "config.json5", "Path to the json5 config file.")
	downloadCsv = downloadCmd.Flags().String("csv", "", "Record stream to process, overrides csv_file from the config.")
	rootCmd.AddCommand(downloadCmd)
}

func openReportDb(path string) *sql.DB {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		serviceutil.Fatal("failed to open report db", err)
	}
	_, err = database.Exec(db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		serviceutil.Fatal("failed to apply report db schema", err)
	}
	return database
}

var downloadCmd = &cobra.Command{
	Use:   "download [--config <config.json5>] [--csv <records.csv>]",
	Short: "Downloads every content package listed in the record stream.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig(*downloadConfig)

		csvFile := cfg.CsvFile
		if *downloadCsv != "" {
			csvFile = *downloadCsv
		}
		recordList, format, err := records.ReadFile(csvFile)
		if err != nil {
			serviceutil.Fatal("failed to read record stream", err)
		}
		slog.Info(
			"record stream loaded",
			"file", csvFile,
			"format", format.String(),
			"entries", len(recordList),
		)

		client := createClient(ctx, cfg)

		database := openReportDb(cfg.ReportDb)
		defer database.Close()

		service := downloader.NewService(downloader.Options{
			Core:       client,
			DB:         database,
			OutputRoot: cfg.OutputDir,
		})

		t1 := time.Now()
		tally, err := service.Run(ctx, recordList)
		if err != nil {
			slog.Warn("run aborted", "err", err)
		}
		slog.Info("run finished", "seconds", time.Since(t1).Seconds())

		err = service.RenderReport(ctx, os.Stdout, tally)
		if err != nil {
			slog.Warn("failed to render report", "err", err)
		}
	},
}
