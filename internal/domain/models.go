package domain

import "time"

// Impact classifies the market significance of an economic event
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Listing pairs a ticker symbol with its display name
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Quote represents a current market quote for a single symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	MarketCap     float64 `json:"marketCap,omitempty"`
}

// Candle represents one day of OHLCV data
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SectorData holds rolling returns for one sector ETF
type SectorData struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Day1      float64 `json:"day1"`
	Day5      float64 `json:"day5"`
	Day10     float64 `json:"day10"`
	Day30     float64 `json:"day30"`
	MarketCap float64 `json:"marketCap,omitempty"`
}

// WatchlistItem is a quote enriched with best-effort analytics.
// RSI comes from a separately failing subsystem and may be absent.
type WatchlistItem struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"currentPrice"`
	PreviousClose float64   `json:"previousClose"`
	Volume        int64     `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	RSI           *float64  `json:"rsi,omitempty"`
	VolumeHistory []int64   `json:"volumeHistory,omitempty"`
	PriceHistory  []float64 `json:"priceHistory,omitempty"`
}

// EconomicEvent is one entry from an economic calendar
type EconomicEvent struct {
	Date     string `json:"date"`
	Country  string `json:"country"`
	Event    string `json:"event"`
	Impact   Impact `json:"impact"`
	Actual   string `json:"actual,omitempty"`
	Estimate string `json:"estimate,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// NewsArticle is one market news item
type NewsArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"` // unix seconds
	Image    string `json:"image,omitempty"`
	Related  string `json:"related,omitempty"`
}

// ETFConstituent is a single holding within an ETF
type ETFConstituent struct {
	Symbol         string   `json:"symbol"`
	HoldingName    string   `json:"holdingName"`
	HoldingPercent float64  `json:"holdingPercent"`
	CurrentPrice   *float64 `json:"currentPrice,omitempty"`
	Change         *float64 `json:"change,omitempty"`
	ChangePercent  *float64 `json:"changePercent,omitempty"`
}

// SectorConstituentsData describes the holdings of one sector ETF
// together with its best and worst performer of the day.
type SectorConstituentsData struct {
	SectorSymbol    string           `json:"sectorSymbol"`
	SectorName      string           `json:"sectorName"`
	Holdings        []ETFConstituent `json:"holdings"`
	TopPerformer    *ETFConstituent  `json:"topPerformer,omitempty"`
	BottomPerformer *ETFConstituent  `json:"bottomPerformer,omitempty"`
}

// WorldMarketIndex is a global index quote with trailing closes for sparklines
type WorldMarketIndex struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	CurrentPrice  float64   `json:"currentPrice"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	PriceHistory  []float64 `json:"priceHistory,omitempty"`
}

// Envelope types pushed to the presentation layer. Each carries the
// wall-clock time of the push, not of the underlying fetch.

// MarketData wraps sector performance for a push
type MarketData struct {
	Sectors     []SectorData `json:"sectors"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// EconomicCalendar wraps economic events for a push
type EconomicCalendar struct {
	Events      []EconomicEvent `json:"events"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// StockNewsData wraps news articles for a push
type StockNewsData struct {
	Articles    []NewsArticle `json:"articles"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// WorldMarketsData wraps world index quotes for a push
type WorldMarketsData struct {
	Indices     []WorldMarketIndex `json:"indices"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

// WatchlistData wraps watchlist quotes for a push
type WatchlistData struct {
	Stocks      []WatchlistItem `json:"stocks"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// ConstituentsData wraps one sector's constituents for a push,
// tagged with the requesting symbol so the client can match it.
type ConstituentsData struct {
	SectorConstituentsData
	LastUpdated time.Time `json:"lastUpdated"`
}
