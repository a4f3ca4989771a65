package main

import (
	"context"
	"log/slog"

	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/lib/util/serviceutil"
)

func InitTelemetry(ctx context.Context, verbose bool, cfg telemetry.Config) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	otel, err := telemetry.Setup(ctx, "fetlife-adapter", cfg)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		otel.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)
}
