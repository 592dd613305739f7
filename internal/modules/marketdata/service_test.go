package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/morningreport/internal/domain"
)

type fakeQuotes struct {
	quotes map[string]*domain.Quote
	errs   map[string]error
	calls  []string
}

func (f *fakeQuotes) Quote(_ context.Context, symbol string) (*domain.Quote, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return nil, &domain.NotFoundError{Provider: "fake", Symbol: symbol}
}

type fakeHistory struct {
	candles map[string][]domain.Candle
	errs    map[string]error
}

func (f *fakeHistory) Historical(_ context.Context, symbol string, _ int) ([]domain.Candle, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.candles[symbol], nil
}

type fakeNews struct {
	articles []domain.NewsArticle
	err      error
	calls    int
}

func (f *fakeNews) MarketNews(_ context.Context, _ int) ([]domain.NewsArticle, error) {
	f.calls++
	return f.articles, f.err
}

type fakeHoldings struct {
	holdings []domain.ETFConstituent
	err      error
}

func (f *fakeHoldings) ETFHoldings(_ context.Context, _ string) ([]domain.ETFConstituent, error) {
	return f.holdings, f.err
}

type fakeRSI struct {
	values map[string]float64
}

func (f *fakeRSI) BatchRSI(_ context.Context, _ []string) map[string]float64 {
	return f.values
}

// flatCandles builds n daily candles all closing at the same price.
func flatCandles(n int, close float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = domain.Candle{
			Date:   base.AddDate(0, 0, i),
			Close:  close,
			Volume: int64(1000 + i),
		}
	}
	return candles
}

// TestSectorPerformanceReturns tests the rolling return math against a
// known history.
func TestSectorPerformanceReturns(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*domain.Quote{
		"SPY": {Symbol: "SPY", Price: 110, MarketCap: 5e11},
	}}
	history := &fakeHistory{candles: map[string][]domain.Candle{
		"SPY": flatCandles(40, 100),
	}}

	svc := NewService(Deps{Quotes: quotes, History: history},
		[]domain.Listing{{Symbol: "SPY", Name: "S&P 500"}}, nil, zerolog.Nop())

	sectors, err := svc.SectorPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, sectors, 1)

	// Every past close is 100 and the live price is 110, so every
	// window shows the same 10% gain.
	assert.InDelta(t, 10.0, sectors[0].Day1, 1e-9)
	assert.InDelta(t, 10.0, sectors[0].Day5, 1e-9)
	assert.InDelta(t, 10.0, sectors[0].Day30, 1e-9)
	assert.Equal(t, 5e11, sectors[0].MarketCap)
}

// TestSectorPerformancePlaceholderOnFailure tests that one failing ETF
// degrades to a zeroed row without dropping the rest.
func TestSectorPerformancePlaceholderOnFailure(t *testing.T) {
	quotes := &fakeQuotes{
		quotes: map[string]*domain.Quote{"SPY": {Symbol: "SPY", Price: 100}},
		errs:   map[string]error{"XLE": &domain.NetworkError{Provider: "fake", Err: errors.New("down")}},
	}
	history := &fakeHistory{candles: map[string][]domain.Candle{
		"SPY": flatCandles(40, 100),
	}}

	svc := NewService(Deps{Quotes: quotes, History: history},
		[]domain.Listing{{Symbol: "SPY", Name: "S&P 500"}, {Symbol: "XLE", Name: "Energy"}},
		nil, zerolog.Nop())

	sectors, err := svc.SectorPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, sectors, 2)

	assert.Equal(t, "XLE", sectors[1].Symbol)
	assert.Equal(t, "Energy", sectors[1].Name)
	assert.Zero(t, sectors[1].Day1)
	assert.Zero(t, sectors[1].Day30)
}

// TestStockQuotesMergesRSI tests that sidecar RSI values attach by
// symbol and stay absent otherwise.
func TestStockQuotesMergesRSI(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]*domain.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150, Change: 2, ChangePercent: 1.3},
		"MSFT": {Symbol: "MSFT", Price: 300},
	}}
	history := &fakeHistory{candles: map[string][]domain.Candle{
		"AAPL": flatCandles(7, 150),
		"MSFT": flatCandles(7, 300),
	}}
	rsi := &fakeRSI{values: map[string]float64{"AAPL": 62.5}}

	svc := NewService(Deps{Quotes: quotes, History: history, RSI: rsi}, nil, nil, zerolog.Nop())

	items, err := svc.StockQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].RSI)
	assert.Equal(t, 62.5, *items[0].RSI)
	assert.Nil(t, items[1].RSI)
}

// TestStockQuotesPlaceholderAndSparkline tests per-symbol isolation and
// the five-point sparkline trim.
func TestStockQuotesPlaceholderAndSparkline(t *testing.T) {
	quotes := &fakeQuotes{
		quotes: map[string]*domain.Quote{"AAPL": {Symbol: "AAPL", Price: 150, Volume: 9000}},
		errs:   map[string]error{"DEAD": &domain.TimeoutError{Op: "quote"}},
	}
	history := &fakeHistory{candles: map[string][]domain.Candle{
		"AAPL": flatCandles(7, 150),
	}}

	svc := NewService(Deps{Quotes: quotes, History: history}, nil, nil, zerolog.Nop())

	items, err := svc.StockQuotes(context.Background(), []string{"DEAD", "AAPL"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "DEAD", items[0].Symbol)
	assert.Zero(t, items[0].CurrentPrice)
	assert.Empty(t, items[0].PriceHistory)

	assert.Equal(t, 150.0, items[1].CurrentPrice)
	assert.Len(t, items[1].PriceHistory, 5)
	assert.Len(t, items[1].VolumeHistory, 5)
	// Trimmed to the most recent five candles.
	assert.Equal(t, int64(1006), items[1].VolumeHistory[4])
}

// TestMarketNewsFallback tests primary-to-fallback failover.
func TestMarketNewsFallback(t *testing.T) {
	primary := &fakeNews{err: &domain.NetworkError{Provider: "yahoo", Err: errors.New("503")}}
	fallback := &fakeNews{articles: []domain.NewsArticle{{Headline: "Markets rally"}}}

	svc := NewService(Deps{News: primary, NewsFallback: fallback}, nil, nil, zerolog.Nop())

	articles, err := svc.MarketNews(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Markets rally", articles[0].Headline)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

// TestMarketNewsPrimarySuccess tests that the fallback stays untouched
// when the primary answers.
func TestMarketNewsPrimarySuccess(t *testing.T) {
	primary := &fakeNews{articles: []domain.NewsArticle{{Headline: "Fed holds"}}}
	fallback := &fakeNews{}

	svc := NewService(Deps{News: primary, NewsFallback: fallback}, nil, nil, zerolog.Nop())

	articles, err := svc.MarketNews(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, 0, fallback.calls)
}

// TestWorldMarketsPlaceholder tests per-index degradation.
func TestWorldMarketsPlaceholder(t *testing.T) {
	quotes := &fakeQuotes{
		quotes: map[string]*domain.Quote{"^GSPC": {Symbol: "^GSPC", Price: 5000, ChangePercent: 0.4}},
		errs:   map[string]error{"^N225": &domain.NetworkError{Provider: "fake", Err: errors.New("down")}},
	}
	history := &fakeHistory{candles: map[string][]domain.Candle{
		"^GSPC": flatCandles(7, 5000),
	}}

	svc := NewService(Deps{Quotes: quotes, History: history}, nil,
		[]domain.Listing{{Symbol: "^GSPC", Name: "S&P 500"}, {Symbol: "^N225", Name: "Nikkei 225"}},
		zerolog.Nop())

	indices, err := svc.WorldMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, indices, 2)

	assert.Equal(t, 5000.0, indices[0].CurrentPrice)
	assert.Len(t, indices[0].PriceHistory, 5)

	assert.Equal(t, "Nikkei 225", indices[1].Name)
	assert.Zero(t, indices[1].CurrentPrice)
	assert.Empty(t, indices[1].PriceHistory)
}

// TestETFConstituentsTopBottom tests performer selection including the
// first-wins tie break and skipping unquoted holdings.
func TestETFConstituentsTopBottom(t *testing.T) {
	holdings := &fakeHoldings{holdings: []domain.ETFConstituent{
		{Symbol: "AAPL", HoldingName: "Apple", HoldingPercent: 7.1},
		{Symbol: "MSFT", HoldingName: "Microsoft", HoldingPercent: 6.8},
		{Symbol: "NVDA", HoldingName: "NVIDIA", HoldingPercent: 6.2},
		{Symbol: "DEAD", HoldingName: "Delisted Corp", HoldingPercent: 0.5},
	}}
	quotes := &fakeQuotes{
		quotes: map[string]*domain.Quote{
			"AAPL": {Symbol: "AAPL", Price: 150, ChangePercent: 2.0},
			"MSFT": {Symbol: "MSFT", Price: 300, ChangePercent: 2.0},
			"NVDA": {Symbol: "NVDA", Price: 500, ChangePercent: -1.5},
		},
		errs: map[string]error{"DEAD": &domain.NotFoundError{Provider: "fake", Symbol: "DEAD"}},
	}

	svc := NewService(Deps{Quotes: quotes, Holdings: holdings}, nil, nil, zerolog.Nop())

	data, err := svc.ETFConstituents(context.Background(), "XLK")
	require.NoError(t, err)

	assert.Equal(t, "XLK", data.SectorSymbol)
	assert.Equal(t, "Technology", data.SectorName)
	require.Len(t, data.Holdings, 4)

	// AAPL and MSFT tie at +2.0; the earlier holding wins.
	require.NotNil(t, data.TopPerformer)
	assert.Equal(t, "AAPL", data.TopPerformer.Symbol)

	require.NotNil(t, data.BottomPerformer)
	assert.Equal(t, "NVDA", data.BottomPerformer.Symbol)

	// The unquoted holding stays in the list without price fields.
	assert.Nil(t, data.Holdings[3].ChangePercent)
}

// TestETFConstituentsHoldingsError tests that a failed holdings lookup
// propagates instead of degrading.
func TestETFConstituentsHoldingsError(t *testing.T) {
	holdings := &fakeHoldings{err: &domain.NotFoundError{Provider: "fmp", Symbol: "ZZZ"}}

	svc := NewService(Deps{Holdings: holdings}, nil, nil, zerolog.Nop())

	_, err := svc.ETFConstituents(context.Background(), "ZZZ")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

// TestETFConstituentsQuoteCap tests that only the leading holdings get
// individual quotes.
func TestETFConstituentsQuoteCap(t *testing.T) {
	var list []domain.ETFConstituent
	for i := 0; i < 25; i++ {
		list = append(list, domain.ETFConstituent{Symbol: string(rune('A' + i))})
	}
	holdings := &fakeHoldings{holdings: list}
	quotes := &fakeQuotes{quotes: map[string]*domain.Quote{}}

	svc := NewService(Deps{Quotes: quotes, Holdings: holdings}, nil, nil, zerolog.Nop())

	data, err := svc.ETFConstituents(context.Background(), "XLF")
	require.NoError(t, err)

	assert.Len(t, data.Holdings, holdingQuoteLimit)
	assert.Len(t, quotes.calls, holdingQuoteLimit)
}
