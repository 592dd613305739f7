package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/clients/throttle"
	"github.com/aristath/morningreport/internal/domain"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Client is a Finnhub API client. Finnhub's free tier throttles hard,
// so every call is sequenced through a limiter with a fixed pause.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *throttle.Limiter
	log     zerolog.Logger
}

// NewClient creates a new Finnhub client.
func NewClient(apiKey string, delay time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: throttle.New(delay),
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// Quote fetches the current quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	body, err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	var q quoteResponse
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, &domain.ParseError{Provider: "finnhub", Err: err}
	}

	if q.Current == 0 && q.PreviousClose == 0 {
		return nil, &domain.NotFoundError{Provider: "finnhub", Symbol: symbol}
	}

	return &domain.Quote{
		Symbol:        symbol,
		Price:         q.Current,
		PreviousClose: q.PreviousClose,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
	}, nil
}

// Candles fetches daily close candles for the trailing number of days,
// oldest first.
func (c *Client) Candles(ctx context.Context, symbol string, days int) ([]domain.Candle, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -days)

	body, err := c.get(ctx, "/stock/candle", url.Values{
		"symbol":     {symbol},
		"resolution": {"D"},
		"from":       {fmt.Sprint(from.Unix())},
		"to":         {fmt.Sprint(now.Unix())},
	})
	if err != nil {
		return nil, err
	}

	var candles candleResponse
	if err := json.Unmarshal(body, &candles); err != nil {
		return nil, &domain.ParseError{Provider: "finnhub", Err: err}
	}

	if candles.Status == "no_data" || len(candles.Close) == 0 {
		return nil, &domain.NotFoundError{Provider: "finnhub", Symbol: symbol}
	}

	out := make([]domain.Candle, 0, len(candles.Close))
	for i := range candles.Close {
		candle := domain.Candle{Close: candles.Close[i]}
		if i < len(candles.Timestamp) {
			candle.Date = time.Unix(candles.Timestamp[i], 0)
		}
		if i < len(candles.Open) {
			candle.Open = candles.Open[i]
		}
		if i < len(candles.High) {
			candle.High = candles.High[i]
		}
		if i < len(candles.Low) {
			candle.Low = candles.Low[i]
		}
		if i < len(candles.Volume) {
			candle.Volume = int64(candles.Volume[i])
		}
		out = append(out, candle)
	}

	return out, nil
}

// MarketNews fetches general market news, at most max articles.
func (c *Client) MarketNews(ctx context.Context, max int) ([]domain.NewsArticle, error) {
	body, err := c.get(ctx, "/news", url.Values{"category": {"general"}})
	if err != nil {
		return nil, err
	}

	var items []newsItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &domain.ParseError{Provider: "finnhub", Err: err}
	}

	if len(items) > max {
		items = items[:max]
	}

	articles := make([]domain.NewsArticle, 0, len(items))
	for _, item := range items {
		articles = append(articles, domain.NewsArticle{
			ID:       item.ID,
			Headline: item.Headline,
			Summary:  item.Summary,
			Source:   item.Source,
			URL:      item.URL,
			Datetime: item.Datetime,
			Image:    item.Image,
			Related:  item.Related,
		})
	}

	return articles, nil
}

// EconomicCalendar fetches economic events for the trailing edge of
// the current week. The month-window FMP provider supersedes this one;
// it stays available behind the same interface for keyless setups.
func (c *Client) EconomicCalendar(ctx context.Context) ([]domain.EconomicEvent, error) {
	now := time.Now()
	endOfWeek := now.AddDate(0, 0, 7-int(now.Weekday()))

	body, err := c.get(ctx, "/calendar/economic", url.Values{
		"from": {now.Format("2006-01-02")},
		"to":   {endOfWeek.Format("2006-01-02")},
	})
	if err != nil {
		return nil, err
	}

	var calendar calendarResponse
	if err := json.Unmarshal(body, &calendar); err != nil {
		return nil, &domain.ParseError{Provider: "finnhub", Err: err}
	}

	events := make([]domain.EconomicEvent, 0, len(calendar.EconomicCalendar))
	for _, e := range calendar.EconomicCalendar {
		events = append(events, domain.EconomicEvent{
			Date:     e.Time,
			Country:  defaultString(e.Country, "US"),
			Event:    e.Event,
			Impact:   parseImpact(e.Impact),
			Actual:   e.Actual.String(),
			Estimate: e.Estimate.String(),
			Previous: e.Previous.String(),
		})
	}

	return events, nil
}

// get performs a GET request with the API token appended and checks
// the payload for an application-level error field before returning.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.NetworkError{Provider: "finnhub", Err: err}
	}

	var body []byte
	err = c.limiter.Do(func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return &domain.NetworkError{Provider: "finnhub", Err: err}
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &domain.NetworkError{Provider: "finnhub", Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			return &domain.NetworkError{
				Provider: "finnhub",
				Err:      fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Error payloads are objects with an "error" key; valid payloads
	// may be arrays, so probe without committing to a shape.
	var probe struct {
		Error string `json:"error"`
	}
	if len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
			return nil, &domain.ProviderError{Provider: "finnhub", Message: probe.Error}
		}
	}

	return body, nil
}

func parseImpact(raw string) domain.Impact {
	switch strings.ToLower(raw) {
	case "low":
		return domain.ImpactLow
	case "high":
		return domain.ImpactHigh
	default:
		return domain.ImpactMedium
	}
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
