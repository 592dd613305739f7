package dispatcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/cache"
	"github.com/aristath/morningreport/internal/domain"
	"github.com/aristath/morningreport/internal/events"
)

// Aggregator is the market data service the dispatcher drives.
type Aggregator interface {
	SectorPerformance(ctx context.Context) ([]domain.SectorData, error)
	StockQuotes(ctx context.Context, symbols []string) ([]domain.WatchlistItem, error)
	MarketNews(ctx context.Context) ([]domain.NewsArticle, error)
	EconomicEvents(ctx context.Context) ([]domain.EconomicEvent, error)
	WorldMarkets(ctx context.Context) ([]domain.WorldMarketIndex, error)
	ETFConstituents(ctx context.Context, symbol string) (*domain.SectorConstituentsData, error)
}

// TTLs holds per-category cache lifetimes. Zero fields fall back to
// the package defaults.
type TTLs struct {
	Sectors      time.Duration
	Events       time.Duration
	News         time.Duration
	WorldMarkets time.Duration
	Constituents time.Duration
}

func (t *TTLs) applyDefaults() {
	if t.Sectors == 0 {
		t.Sectors = cache.TTLSectors
	}
	if t.Events == 0 {
		t.Events = cache.TTLEvents
	}
	if t.News == 0 {
		t.News = cache.TTLNews
	}
	if t.WorldMarkets == 0 {
		t.WorldMarkets = cache.TTLWorldMarkets
	}
	if t.Constituents == 0 {
		t.Constituents = cache.TTLConstituents
	}
}

// ErrorPayload is pushed on the fetch-error event.
type ErrorPayload struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// category binds a cache key to its event name, lifetime and fetch
// function. The fetch returns a ready-to-push envelope.
type category struct {
	key   string
	event string
	ttl   time.Duration
	fetch func(ctx context.Context) (interface{}, error)
}

// Dispatcher orchestrates fetch requests from the presentation layer:
// it consults the cache, calls the aggregator on misses, stores fresh
// results and publishes update events. Watchlist data bypasses the
// cache entirely.
type Dispatcher struct {
	agg          Aggregator
	cache        *cache.Cache
	bus          *events.Bus
	ttls         TTLs
	startupDelay time.Duration
	now          func() time.Time
	log          zerolog.Logger

	categories []category
}

// New creates a dispatcher. startupDelay is how long after Start the
// first full fetch kicks off.
func New(agg Aggregator, c *cache.Cache, bus *events.Bus, ttls TTLs, startupDelay time.Duration, log zerolog.Logger) *Dispatcher {
	ttls.applyDefaults()

	d := &Dispatcher{
		agg:          agg,
		cache:        c,
		bus:          bus,
		ttls:         ttls,
		startupDelay: startupDelay,
		now:          time.Now,
		log:          log.With().Str("component", "dispatcher").Logger(),
	}

	// Fetch order matters: cheap, above-the-fold data first so the
	// dashboard fills top-down.
	d.categories = []category{
		{
			key:   "sectors",
			event: events.MarketDataUpdated,
			ttl:   d.ttls.Sectors,
			fetch: func(ctx context.Context) (interface{}, error) {
				sectors, err := d.agg.SectorPerformance(ctx)
				if err != nil {
					return nil, err
				}
				return domain.MarketData{Sectors: sectors, LastUpdated: d.now()}, nil
			},
		},
		{
			key:   "events",
			event: events.EconomicEventsUpdated,
			ttl:   d.ttls.Events,
			fetch: func(ctx context.Context) (interface{}, error) {
				evs, err := d.agg.EconomicEvents(ctx)
				if err != nil {
					return nil, err
				}
				return domain.EconomicCalendar{Events: evs, LastUpdated: d.now()}, nil
			},
		},
		{
			key:   "news",
			event: events.StockNewsUpdated,
			ttl:   d.ttls.News,
			fetch: func(ctx context.Context) (interface{}, error) {
				articles, err := d.agg.MarketNews(ctx)
				if err != nil {
					return nil, err
				}
				return domain.StockNewsData{Articles: articles, LastUpdated: d.now()}, nil
			},
		},
		{
			key:   "worldMarkets",
			event: events.WorldMarketsUpdated,
			ttl:   d.ttls.WorldMarkets,
			fetch: func(ctx context.Context) (interface{}, error) {
				indices, err := d.agg.WorldMarkets(ctx)
				if err != nil {
					return nil, err
				}
				return domain.WorldMarketsData{Indices: indices, LastUpdated: d.now()}, nil
			},
		},
	}

	return d
}

// Start schedules the initial full fetch shortly after boot, giving
// the presentation layer time to attach its subscriptions first.
func (d *Dispatcher) Start() {
	delay := d.startupDelay
	if delay == 0 {
		delay = 2 * time.Second
	}

	d.log.Info().Dur("delay", delay).Msg("Initial fetch scheduled")
	time.AfterFunc(delay, func() {
		d.FetchAll(context.Background())
	})
}

// FetchAll refreshes every cached category in order, publishing an
// update event per category. Cache hits are re-published as-is. The
// first fetch failure publishes a single fetch-error and aborts the
// remaining categories, since they almost always share the same cause.
func (d *Dispatcher) FetchAll(ctx context.Context) {
	d.log.Info().Msg("Full market data fetch")

	for _, cat := range d.categories {
		if cached, ok := d.cache.Get(cat.key); ok {
			d.log.Debug().Str("category", cat.key).Msg("Serving cached data")
			d.bus.Publish(cat.event, cached)
			continue
		}

		payload, err := cat.fetch(ctx)
		if err != nil {
			d.log.Error().Err(err).Str("category", cat.key).Msg("Fetch failed")
			d.bus.Publish(events.FetchError, ErrorPayload{Category: cat.key, Message: err.Error()})
			return
		}

		d.cache.Set(cat.key, payload, cat.ttl)
		d.bus.Publish(cat.event, payload)
	}
}

// FetchWatchlist fetches live quotes for the given symbols and pushes
// them. Watchlist data is never cached: the list mutates on user
// action and stale rows are worse than a slow refresh.
func (d *Dispatcher) FetchWatchlist(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		d.bus.Publish(events.WatchlistUpdated, domain.WatchlistData{Stocks: []domain.WatchlistItem{}, LastUpdated: d.now()})
		return
	}

	stocks, err := d.agg.StockQuotes(ctx, symbols)
	if err != nil {
		d.log.Error().Err(err).Msg("Watchlist fetch failed")
		d.bus.Publish(events.FetchError, ErrorPayload{Category: "watchlist", Message: err.Error()})
		return
	}

	d.bus.Publish(events.WatchlistUpdated, domain.WatchlistData{Stocks: stocks, LastUpdated: d.now()})
}

// FetchSectorConstituents fetches the holdings breakdown for one
// sector ETF, cached per symbol.
func (d *Dispatcher) FetchSectorConstituents(ctx context.Context, symbol string) {
	key := "constituents:" + symbol

	if cached, ok := d.cache.Get(key); ok {
		d.log.Debug().Str("symbol", symbol).Msg("Serving cached constituents")
		d.bus.Publish(events.ConstituentsUpdated, cached)
		return
	}

	data, err := d.agg.ETFConstituents(ctx, symbol)
	if err != nil {
		d.log.Error().Err(err).Str("symbol", symbol).Msg("Constituents fetch failed")
		d.bus.Publish(events.FetchError, ErrorPayload{Category: "constituents", Message: err.Error()})
		return
	}

	payload := domain.ConstituentsData{SectorConstituentsData: *data, LastUpdated: d.now()}
	d.cache.Set(key, payload, d.ttls.Constituents)
	d.bus.Publish(events.ConstituentsUpdated, payload)
}

// NotifyWatchlistAdd records a watchlist addition. The client follows
// up with a FetchWatchlist carrying the full list, so nothing is
// fetched here.
func (d *Dispatcher) NotifyWatchlistAdd(symbol string) {
	d.log.Info().Str("symbol", symbol).Msg("Watchlist add")
}

// NotifyWatchlistRemove records a watchlist removal.
func (d *Dispatcher) NotifyWatchlistRemove(symbol string) {
	d.log.Info().Str("symbol", symbol).Msg("Watchlist remove")
}

// InvalidateAll drops every cached category so the next FetchAll goes
// to origin.
func (d *Dispatcher) InvalidateAll() {
	for _, cat := range d.categories {
		d.cache.Delete(cat.key)
	}
	d.log.Info().Msg("Cache invalidated")
}
