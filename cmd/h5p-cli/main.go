package main

import (
	"context"
	"log/slog"
	"os"

	"h5p-downloader/cmd/h5p-cli/commands"
	"h5p-downloader/lib/serviceutil"
	"h5p-downloader/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "h5p-cli")
	if err == nil {
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	} else if !os.IsNotExist(err) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	commands.ExecuteContext(ctx)
}
