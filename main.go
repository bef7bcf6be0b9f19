// Package main is the entry point for the Trafikinfo Aggregator service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/trafikinfo/aggregator/broadcast"
	"github.com/trafikinfo/aggregator/broker"
	"github.com/trafikinfo/aggregator/config"
	"github.com/trafikinfo/aggregator/domain"
	"github.com/trafikinfo/aggregator/enrich"
	"github.com/trafikinfo/aggregator/eventstore"
	"github.com/trafikinfo/aggregator/geo"
	"github.com/trafikinfo/aggregator/logger"
	"github.com/trafikinfo/aggregator/metrics"
	"github.com/trafikinfo/aggregator/neon"
	"github.com/trafikinfo/aggregator/push"
	"github.com/trafikinfo/aggregator/server"
	"github.com/trafikinfo/aggregator/snapshot"
	"github.com/trafikinfo/aggregator/tvapi"
	"github.com/trafikinfo/aggregator/ui"
	"github.com/trafikinfo/aggregator/worker"
)

const defaultRetentionSweepInterval = 6 * time.Hour

// initSentry initializes Sentry if DSN is provided and not in dev mode.
// Returns true if Sentry was initialized.
func initSentry(devMode bool) bool {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" || devMode {
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      "production",
		Release:          server.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Fatal(err, "sentry.Init: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	logger.SetSentryCaptureException(func(err error) interface{} {
		return sentry.CaptureException(err)
	})

	return true
}

func printHelp() {
	fmt.Println("Trafikinfo Aggregator")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  aggregator          Start the service (default)")
	fmt.Println("  aggregator migrate  Run the eventstore schema migrations and exit")
	fmt.Println("  aggregator help     Show this help message")
}

func runMigrate(ctx context.Context) error {
	cfg, err := neon.FromEnv()
	if err != nil {
		return err
	}
	pool, err := neon.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to Neon: %w", err)
	}
	defer pool.Close()

	if err := eventstore.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Success("migrations applied")
	return nil
}

func retentionLoop(ctx context.Context, store *eventstore.Store, settings func() domain.Settings) {
	ticker := time.NewTicker(defaultRetentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			days := settings().RetentionDays
			if days <= 0 {
				continue
			}
			incidents, roadConditions, err := store.RetentionSweep(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				logger.Error(err, "retention sweep failed: %v", err)
				continue
			}
			if incidents > 0 {
				metrics.RetentionSweepRowsDeletedTotal.WithLabelValues("incidents").Add(float64(incidents))
			}
			if roadConditions > 0 {
				metrics.RetentionSweepRowsDeletedTotal.WithLabelValues("road_conditions").Add(float64(roadConditions))
			}
		}
	}
}

func main() {
	devMode := os.Getenv("DEV_MODE") == "1" || os.Getenv("DEV_MODE") == "true"
	sentryEnabled := initSentry(devMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := runMigrate(ctx); err != nil {
				logger.Fatal(err)
			}
			os.Exit(0)
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cfg := config.Load()

	neonCfg, err := neon.FromEnv()
	if err != nil {
		logger.Fatal(err, "neon.FromEnv: %v", err)
	}
	pool, err := neon.NewPool(ctx, neonCfg)
	if err != nil {
		logger.Fatal(err, "connect to Neon: %v", err)
	}
	defer pool.Close()

	if err := eventstore.Migrate(ctx, pool); err != nil {
		logger.Fatal(err, "migrate: %v", err)
	}

	store := eventstore.New(pool)

	resolvedSettings := config.ResolveSettings(ctx, store, cfg.Settings)
	var settingsVal atomic.Value
	settingsVal.Store(resolvedSettings)
	currentSettings := func() domain.Settings {
		return settingsVal.Load().(domain.Settings)
	}

	tvapiClient := tvapi.NewClient(resolvedSettings.APIKey)

	cameras := geo.NewIndex[domain.Camera]()
	stations := geo.NewIndex[domain.WeatherStation]()

	snapshots, err := snapshot.NewStore(cfg.SnapshotDir, logger.HTTPLogger())
	if err != nil {
		logger.Fatal(err, "snapshot.NewStore: %v", err)
	}

	enricher := enrich.New(cameras, stations, snapshots, store, resolvedSettings.CameraRadiusKM, logger.HTTPLogger())

	brokerPublisher, err := broker.New(broker.Config{
		Enabled:            resolvedSettings.MQTTEnabled,
		Host:               resolvedSettings.MQTTHost,
		Port:               resolvedSettings.MQTTPort,
		Username:           resolvedSettings.MQTTUsername,
		Password:           resolvedSettings.MQTTPassword,
		Topic:              resolvedSettings.MQTTTopic,
		RoadConditionTopic: resolvedSettings.MQTTRoadConditionTopic,
	}, logger.HTTPLogger())
	if err != nil {
		logger.Warn("mqtt broker unavailable: %v", err)
		brokerPublisher, _ = broker.New(broker.Config{Enabled: false}, logger.HTTPLogger())
	}
	defer brokerPublisher.Close()

	pushDispatcher := push.New(push.Config{
		Enabled:         resolvedSettings.PushNotificationsEnabled,
		VAPIDPublicKey:  resolvedSettings.VAPIDPublicKey,
		VAPIDPrivateKey: resolvedSettings.VAPIDPrivateKey,
		Subject:         "mailto:ops@" + firstNonEmpty(resolvedSettings.BaseURL, "trafikinfo.example"),
	}, store, logger.HTTPLogger())

	broadcaster := broadcast.New(logger.HTTPLogger(), brokerPublisher, pushDispatcher)

	counties := resolvedSettings.SelectedCounties

	supervisor := worker.New(worker.Config{
		Client:      tvapiClient,
		Cameras:     cameras,
		Stations:    stations,
		Enricher:    enricher,
		Store:       store,
		Broadcaster: broadcaster,
		Logger:      logger.HTTPLogger(),
		IconDir:     cfg.IconDir,
	})

	hasUI := ui.Initialize(server.Version, server.BuildTime, cfg.Port, cfg.PollInterval, len(counties))
	if hasUI {
		logger.SetUIMode(true)
		logger.Log = ui.AddLog
	} else {
		logger.PrintBanner(server.Version, server.BuildTime)
	}

	if cfg.DevMode {
		logger.Info("DEV MODE enabled")
	}
	if !tvapiClient.IsConfigured() {
		logger.Warn("TVAPI_API_KEY not configured; background sync loops disabled, /api/status will report setup_required")
	}

	if err := server.InitErrorLogger(os.Getenv("ERROR_LOG_DIR")); err != nil {
		logger.Warn("error logger unavailable: %v", err)
	}

	var requestCount int64
	var errorCount int64
	server.LogWriter = ui.AddLog
	server.RequestCounter = &requestCount
	server.ErrorCounter = &errorCount

	go broadcaster.Run(ctx)
	go supervisor.Run(ctx)
	go retentionLoop(ctx, store, currentSettings)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.RecordMemoryUsage()
				if hasUI {
					var m runtime.MemStats
					runtime.ReadMemStats(&m)
					ui.UpdateStats(ui.Stats{
						TrackedEntities: len(supervisor.ActiveCounties()),
						RequestsTotal:   int(atomic.LoadInt64(&requestCount)),
						MemoryUsageMB:   float64(m.Alloc) / 1024 / 1024,
						GoroutineCount:  runtime.NumGoroutine(),
					})
				}
			}
		}
	}()

	app, err := server.Start(server.Deps{
		Store:       store,
		Broadcaster: broadcaster,
		Cameras:     cameras,
		Stations:    stations,
		Snapshots:   snapshots,
		Push:        pushDispatcher,
		TVAPIClient: tvapiClient,
		Status:      supervisor,
		Settings:    currentSettings,
		DevMode:     cfg.DevMode,
		Logger:      logger.HTTPLogger(),
	})
	if err != nil {
		logger.Fatal(err)
	}

	logger.Success("Server listening on http://localhost:%s", cfg.Port)
	if hasUI {
		logger.Info("Press Ctrl+C or 'q' to stop")
		ui.SetReady()
	} else {
		logger.Info("Press Ctrl+C to stop")
	}

	go func() {
		if err := app.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "server error: %v", err)
			cancel()
		}
	}()

	<-sigChan
	cancel()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "error during shutdown: %v", err)
	}
	ui.Shutdown()
	_ = server.CloseErrorLogger()
	time.Sleep(100 * time.Millisecond)

	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}

	logger.Success("Goodbye!")
	fmt.Println()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
