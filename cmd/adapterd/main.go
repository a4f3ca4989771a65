package main

import (
	"flag"
	"log/slog"
	"net/url"

	"fetlife-adapter/internal/components/chrono"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/db"
	"fetlife-adapter/internal/scrapers/fetlife"
	"fetlife-adapter/internal/server"
	"fetlife-adapter/internal/sessionstore"
	"fetlife-adapter/lib/util/serviceutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	InitTelemetry(ctx, *verbose, cfg.Telemetry)
	if *verbose && cfg.DumpDir == "" {
		cfg.DumpDir = ".dev/resty/fetlife"
	}

	if cfg.AccessToken == "" {
		slog.Warn("no access token configured, every request will be refused")
	}

	tel := telemetry.SlogAPI{}

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer database.Close()

	sealer, err := sessionstore.ParseSealKey(cfg.SealKey)
	if err != nil {
		serviceutil.Fatal("parse seal key", err)
	}
	store := sessionstore.New(database, sealer, chrono.StandardImpl{}, tel)

	transports, err := fetlife.NewTransportFactory(cfg.TransportConfig, tel)
	if err != nil {
		serviceutil.Fatal("init transport", err)
	}
	baseUrl, err := url.Parse(cfg.BaseUrl)
	if err != nil {
		serviceutil.Fatal("parse base url", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(store, transports, server.NewMetrics(registry), slog.Default(), tel, server.Options{
		AccessToken:     cfg.AccessToken,
		DefaultAccount:  cfg.DefaultAccount,
		DefaultUsername: cfg.DefaultUsername,
		DefaultPassword: cfg.DefaultPassword,
		BaseUrl:         baseUrl,
	})

	slog.Info("starting adapter", "transport", cfg.Kind, "base_url", cfg.BaseUrl, "database", cfg.Database)
	err = serviceutil.StartHttpServer(ctx, cfg.ListenPort, srv.Handler())
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}
