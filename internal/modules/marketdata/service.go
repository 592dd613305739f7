package marketdata

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/domain"
	"github.com/aristath/morningreport/pkg/formulas"
)

// Provider interfaces consumed by the aggregator. Quotes and history
// map onto Yahoo, the calendar onto FMP (canonical month window) or
// Finnhub (deprecated week window), holdings onto FMP, and RSI onto
// the analytics sidecar.

type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
}

type HistoryProvider interface {
	Historical(ctx context.Context, symbol string, days int) ([]domain.Candle, error)
}

type NewsProvider interface {
	MarketNews(ctx context.Context, max int) ([]domain.NewsArticle, error)
}

type CalendarProvider interface {
	EconomicCalendar(ctx context.Context) ([]domain.EconomicEvent, error)
}

type HoldingsProvider interface {
	ETFHoldings(ctx context.Context, symbol string) ([]domain.ETFConstituent, error)
}

type RSIProvider interface {
	BatchRSI(ctx context.Context, symbols []string) map[string]float64
}

// DefaultSectors is the sector ETF list tracked on the dashboard.
var DefaultSectors = []domain.Listing{
	{Symbol: "SPY", Name: "S&P 500"},
	{Symbol: "QQQ", Name: "Nasdaq 100"},
	{Symbol: "DIA", Name: "Dow Jones"},
	{Symbol: "IWM", Name: "Russell 2000"},
	{Symbol: "XLF", Name: "Financials"},
	{Symbol: "XLE", Name: "Energy"},
	{Symbol: "XLV", Name: "Healthcare"},
	{Symbol: "XLK", Name: "Technology"},
	{Symbol: "XLY", Name: "Consumer Discretionary"},
	{Symbol: "XLP", Name: "Consumer Staples"},
	{Symbol: "XLI", Name: "Industrials"},
}

// DefaultWorldIndices is the fixed set of global indices shown in the
// world markets strip.
var DefaultWorldIndices = []domain.Listing{
	{Symbol: "^GSPC", Name: "S&P 500"},
	{Symbol: "^FTSE", Name: "FTSE 100"},
	{Symbol: "^GDAXI", Name: "DAX"},
	{Symbol: "^N225", Name: "Nikkei 225"},
	{Symbol: "^HSI", Name: "Hang Seng"},
	{Symbol: "000001.SS", Name: "Shanghai"},
}

const (
	newsLimit = 10
	// sectorHistoryDays leaves headroom over the 30 trading days the
	// longest rolling return needs, since weekends and holidays thin
	// out a calendar window.
	sectorHistoryDays = 50
	quoteHistoryDays  = 7
	sparklinePoints   = 5
	// holdingQuoteLimit caps per-holding quote calls; holdings lists
	// can run to hundreds of lines and each quote costs a rate-limited
	// round trip.
	holdingQuoteLimit = 10
)

// Deps bundles the aggregator's collaborators.
type Deps struct {
	Quotes       QuoteProvider
	History      HistoryProvider
	News         NewsProvider
	NewsFallback NewsProvider
	Calendar     CalendarProvider
	Holdings     HoldingsProvider
	RSI          RSIProvider
}

// Service aggregates market data across providers. Every batch
// operation is per-item resilient: a failed symbol yields a zero-valued
// placeholder and the batch continues. Provider sequencing and pacing
// is owned by the clients themselves.
type Service struct {
	deps    Deps
	sectors []domain.Listing
	indices []domain.Listing
	log     zerolog.Logger
}

// NewService creates the aggregator. Empty sector or index lists fall
// back to the defaults.
func NewService(deps Deps, sectors, indices []domain.Listing, log zerolog.Logger) *Service {
	if len(sectors) == 0 {
		sectors = DefaultSectors
	}
	if len(indices) == 0 {
		indices = DefaultWorldIndices
	}

	return &Service{
		deps:    deps,
		sectors: sectors,
		indices: indices,
		log:     log.With().Str("service", "marketdata").Logger(),
	}
}

// SectorPerformance fetches rolling returns for every tracked sector
// ETF. A symbol that fails produces a placeholder row with zeroed
// returns; the error never aborts the batch.
func (s *Service) SectorPerformance(ctx context.Context) ([]domain.SectorData, error) {
	results := make([]domain.SectorData, 0, len(s.sectors))

	for _, sector := range s.sectors {
		row, err := s.fetchSectorRow(ctx, sector)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", sector.Symbol).Msg("Sector fetch failed")
			results = append(results, domain.SectorData{Symbol: sector.Symbol, Name: sector.Name})
			continue
		}
		results = append(results, *row)
	}

	return results, nil
}

func (s *Service) fetchSectorRow(ctx context.Context, sector domain.Listing) (*domain.SectorData, error) {
	quote, err := s.deps.Quotes.Quote(ctx, sector.Symbol)
	if err != nil {
		return nil, err
	}

	candles, err := s.deps.History.Historical(ctx, sector.Symbol, sectorHistoryDays)
	if err != nil {
		return nil, err
	}

	closes := sortedCloses(candles)
	currentPrice := quote.Price
	if currentPrice == 0 && len(closes) > 0 {
		currentPrice = closes[len(closes)-1]
	}

	return &domain.SectorData{
		Symbol:    sector.Symbol,
		Name:      sector.Name,
		Day1:      formulas.RollingReturn(closes, currentPrice, 1),
		Day5:      formulas.RollingReturn(closes, currentPrice, 5),
		Day10:     formulas.RollingReturn(closes, currentPrice, 10),
		Day30:     formulas.RollingReturn(closes, currentPrice, 30),
		MarketCap: quote.MarketCap,
	}, nil
}

// StockQuotes fetches watchlist quotes for the given symbols. RSI for
// the whole batch is requested up front from the analytics sidecar and
// merged by symbol; a missing RSI leaves the field unset and never
// fails the item.
func (s *Service) StockQuotes(ctx context.Context, symbols []string) ([]domain.WatchlistItem, error) {
	rsiBySymbol := map[string]float64{}
	if s.deps.RSI != nil {
		rsiBySymbol = s.deps.RSI.BatchRSI(ctx, symbols)
	}

	results := make([]domain.WatchlistItem, 0, len(symbols))
	for _, symbol := range symbols {
		item := s.fetchWatchlistItem(ctx, symbol)
		if rsi, ok := rsiBySymbol[symbol]; ok {
			v := rsi
			item.RSI = &v
		}
		results = append(results, item)
	}

	return results, nil
}

func (s *Service) fetchWatchlistItem(ctx context.Context, symbol string) domain.WatchlistItem {
	quote, err := s.deps.Quotes.Quote(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
		return domain.WatchlistItem{Symbol: symbol}
	}

	item := domain.WatchlistItem{
		Symbol:        symbol,
		CurrentPrice:  quote.Price,
		PreviousClose: quote.PreviousClose,
		Volume:        quote.Volume,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
	}

	// Trailing history feeds the volume and price sparklines; losing
	// it degrades the row, it does not fail it.
	candles, err := s.deps.History.Historical(ctx, symbol, quoteHistoryDays)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed")
		return item
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	if len(candles) > sparklinePoints {
		candles = candles[len(candles)-sparklinePoints:]
	}

	for _, c := range candles {
		item.VolumeHistory = append(item.VolumeHistory, c.Volume)
		item.PriceHistory = append(item.PriceHistory, c.Close)
	}

	return item
}

// MarketNews fetches general market news from the primary provider,
// falling back to the secondary when the whole call fails.
func (s *Service) MarketNews(ctx context.Context) ([]domain.NewsArticle, error) {
	articles, err := s.deps.News.MarketNews(ctx, newsLimit)
	if err == nil {
		return articles, nil
	}

	if s.deps.NewsFallback == nil {
		return nil, err
	}

	s.log.Warn().Err(err).Msg("Primary news provider failed, trying fallback")
	return s.deps.NewsFallback.MarketNews(ctx, newsLimit)
}

// EconomicEvents fetches the economic calendar from the configured
// provider.
func (s *Service) EconomicEvents(ctx context.Context) ([]domain.EconomicEvent, error) {
	return s.deps.Calendar.EconomicCalendar(ctx)
}

// WorldMarkets fetches the fixed set of global indices with trailing
// closes for sparkline rendering. Per-index failures degrade to
// placeholder rows.
func (s *Service) WorldMarkets(ctx context.Context) ([]domain.WorldMarketIndex, error) {
	results := make([]domain.WorldMarketIndex, 0, len(s.indices))

	for _, index := range s.indices {
		quote, err := s.deps.Quotes.Quote(ctx, index.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", index.Symbol).Msg("Index fetch failed")
			results = append(results, domain.WorldMarketIndex{Symbol: index.Symbol, Name: index.Name})
			continue
		}

		row := domain.WorldMarketIndex{
			Symbol:        index.Symbol,
			Name:          index.Name,
			CurrentPrice:  quote.Price,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
		}

		if candles, err := s.deps.History.Historical(ctx, index.Symbol, quoteHistoryDays); err == nil {
			closes := sortedCloses(candles)
			if len(closes) > sparklinePoints {
				closes = closes[len(closes)-sparklinePoints:]
			}
			row.PriceHistory = closes
		} else {
			s.log.Warn().Err(err).Str("symbol", index.Symbol).Msg("Index history fetch failed")
		}

		results = append(results, row)
	}

	return results, nil
}

// ETFConstituents fetches the holdings of one sector ETF and quotes
// the top holdings individually. Top and bottom performer are chosen
// by a strict comparison scan, so the first holding wins ties.
func (s *Service) ETFConstituents(ctx context.Context, symbol string) (*domain.SectorConstituentsData, error) {
	holdings, err := s.deps.Holdings.ETFHoldings(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if len(holdings) > holdingQuoteLimit {
		holdings = holdings[:holdingQuoteLimit]
	}

	for i := range holdings {
		quote, err := s.deps.Quotes.Quote(ctx, holdings[i].Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", holdings[i].Symbol).Msg("Holding quote failed")
			continue
		}
		price := quote.Price
		change := quote.Change
		changePct := quote.ChangePercent
		holdings[i].CurrentPrice = &price
		holdings[i].Change = &change
		holdings[i].ChangePercent = &changePct
	}

	data := &domain.SectorConstituentsData{
		SectorSymbol: symbol,
		SectorName:   s.sectorName(symbol),
		Holdings:     holdings,
	}

	for i := range holdings {
		if holdings[i].ChangePercent == nil {
			continue
		}
		if data.TopPerformer == nil || *holdings[i].ChangePercent > *data.TopPerformer.ChangePercent {
			top := holdings[i]
			data.TopPerformer = &top
		}
		if data.BottomPerformer == nil || *holdings[i].ChangePercent < *data.BottomPerformer.ChangePercent {
			bottom := holdings[i]
			data.BottomPerformer = &bottom
		}
	}

	return data, nil
}

func (s *Service) sectorName(symbol string) string {
	for _, sector := range s.sectors {
		if sector.Symbol == symbol {
			return sector.Name
		}
	}
	return symbol
}

func sortedCloses(candles []domain.Candle) []float64 {
	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	closes := make([]float64, 0, len(sorted))
	for _, c := range sorted {
		closes = append(closes, c.Close)
	}
	return closes
}
