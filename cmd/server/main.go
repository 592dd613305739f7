package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/cache"
	"github.com/aristath/morningreport/internal/clients/finnhub"
	"github.com/aristath/morningreport/internal/clients/fmp"
	"github.com/aristath/morningreport/internal/clients/yahoo"
	"github.com/aristath/morningreport/internal/config"
	"github.com/aristath/morningreport/internal/dispatcher"
	"github.com/aristath/morningreport/internal/events"
	"github.com/aristath/morningreport/internal/modules/marketdata"
	"github.com/aristath/morningreport/internal/scheduler"
	"github.com/aristath/morningreport/internal/server"
	"github.com/aristath/morningreport/internal/sidecar"
	"github.com/aristath/morningreport/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info", Pretty: true})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Morning Report")

	// Provider clients, each with its own request pacing
	yahooClient := yahoo.NewClient(cfg.YahooDelay, log)
	finnhubClient := finnhub.NewClient(cfg.FinnhubAPIKey, cfg.FinnhubDelay, log)
	fmpClient := fmp.NewClient(cfg.FMPAPIKey, cfg.FMPDelay, log)

	// Analytics sidecar for RSI enrichment; empty command disables it
	bridge := sidecar.New(sidecar.Config{
		Command: cfg.SidecarCommand,
		Timeout: cfg.SidecarTimeout,
	}, log)
	defer bridge.Terminate()

	// Economic calendar provider selection
	var calendar marketdata.CalendarProvider = fmpClient
	if cfg.EventsProvider == "finnhub" {
		calendar = finnhubClient
	}
	log.Info().Str("provider", cfg.EventsProvider).Msg("Economic calendar provider selected")

	// Market data aggregator
	aggregator := marketdata.NewService(marketdata.Deps{
		Quotes:       yahooClient,
		History:      yahooClient,
		News:         yahooClient,
		NewsFallback: finnhubClient,
		Calendar:     calendar,
		Holdings:     fmpClient,
		RSI:          bridge,
	}, nil, nil, log)

	// Event bus and dispatcher
	bus := events.NewBus(log)
	disp := dispatcher.New(aggregator, cache.New(), bus, dispatcher.TTLs{
		Sectors:      cfg.TTLSectors,
		Events:       cfg.TTLEvents,
		News:         cfg.TTLNews,
		WorldMarkets: cfg.TTLWorldMarkets,
		Constituents: cfg.TTLConstituents,
	}, cfg.StartupFetchDelay, log)

	marketHours := scheduler.NewMarketHoursService(log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, disp, marketHours, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		Dispatcher:  disp,
		Bus:         bus,
		MarketHours: marketHours,
		DevMode:     cfg.DevMode,
	})

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Kick off the initial fetch once clients have had a moment to
	// attach their subscriptions
	disp.Start()

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, disp *dispatcher.Dispatcher, marketHours *scheduler.MarketHoursService, log zerolog.Logger) error {
	// Periodic refresh; per-category TTLs keep most of it cache-served
	if err := sched.AddJob("@every 5m", scheduler.NewRefreshJob(disp, marketHours, log)); err != nil {
		return err
	}

	// Full rebuild before the US pre-market (06:00 server time)
	if err := sched.AddJob("0 0 6 * * *", scheduler.NewDailyRefreshJob(disp, log)); err != nil {
		return err
	}

	return nil
}
