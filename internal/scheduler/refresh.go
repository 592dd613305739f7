package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/dispatcher"
)

// RefreshJob re-runs the full market data fetch on a fixed cadence.
// Per-category TTLs decide what actually goes to origin, so the common
// case only re-fetches the short-lived world markets data. Outside all
// trading sessions the job idles.
type RefreshJob struct {
	log         zerolog.Logger
	dispatcher  *dispatcher.Dispatcher
	marketHours *MarketHoursService
	timeout     time.Duration
}

// NewRefreshJob creates the periodic refresh job. marketHours may be
// nil, in which case the job always fetches.
func NewRefreshJob(d *dispatcher.Dispatcher, marketHours *MarketHoursService, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		log:         log.With().Str("job", "market_refresh").Logger(),
		dispatcher:  d,
		marketHours: marketHours,
		timeout:     4 * time.Minute,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "market_refresh"
}

// Run executes one refresh cycle
func (j *RefreshJob) Run() error {
	if j.marketHours != nil && !j.marketHours.AnyMarketOpen() {
		j.log.Debug().Msg("All markets closed, skipping refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.dispatcher.FetchAll(ctx)
	j.log.Info().Dur("duration", time.Since(start)).Msg("Refresh cycle completed")

	return nil
}

// DailyRefreshJob drops every cached category and fetches fresh data.
// Scheduled before the US pre-market so the morning report starts the
// day with today's calendar, news and sector returns.
type DailyRefreshJob struct {
	log        zerolog.Logger
	dispatcher *dispatcher.Dispatcher
	timeout    time.Duration
}

// NewDailyRefreshJob creates the daily cache rebuild job.
func NewDailyRefreshJob(d *dispatcher.Dispatcher, log zerolog.Logger) *DailyRefreshJob {
	return &DailyRefreshJob{
		log:        log.With().Str("job", "daily_refresh").Logger(),
		dispatcher: d,
		timeout:    10 * time.Minute,
	}
}

// Name returns the job name
func (j *DailyRefreshJob) Name() string {
	return "daily_refresh"
}

// Run invalidates the cache and rebuilds it from origin
func (j *DailyRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.dispatcher.InvalidateAll()
	j.dispatcher.FetchAll(ctx)

	return nil
}
