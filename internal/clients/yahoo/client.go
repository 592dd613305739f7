package yahoo

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

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a Yahoo Finance API client. All calls go through a shared
// limiter so requests to Yahoo are strictly sequential with a fixed
// pause between them.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *throttle.Limiter
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client with the given
// inter-call delay.
func NewClient(delay time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: throttle.New(delay),
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// Quote fetches the current market quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,longName,shortName,regularMarketPrice,regularMarketPreviousClose,"+
		"regularMarketChange,regularMarketChangePercent,regularMarketVolume,marketCap")

	var body []byte
	err := c.limiter.Do(func() error {
		var err error
		body, err = c.get(ctx, "/v7/finance/quote?"+params.Encode())
		return err
	})
	if err != nil {
		return nil, err
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.ParseError{Provider: "yahoo", Err: err}
	}

	if result.QuoteResponse.Error != nil {
		return nil, &domain.ProviderError{Provider: "yahoo", Message: fmt.Sprint(result.QuoteResponse.Error)}
	}

	if len(result.QuoteResponse.Result) == 0 {
		return nil, &domain.NotFoundError{Provider: "yahoo", Symbol: symbol}
	}

	q := result.QuoteResponse.Result[0]
	name := q.LongName
	if name == "" {
		name = q.ShortName
	}

	return &domain.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         q.RegularMarketPrice,
		PreviousClose: q.RegularMarketPreviousClose,
		Change:        q.RegularMarketChange,
		ChangePercent: q.RegularMarketChangePercent,
		Volume:        q.RegularMarketVolume,
		MarketCap:     q.MarketCap,
	}, nil
}

// Historical fetches daily OHLCV candles covering at least the
// trailing number of calendar days, oldest first. Null rows from
// Yahoo are skipped.
func (c *Client) Historical(ctx context.Context, symbol string, days int) ([]domain.Candle, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", rangeForDays(days))

	var body []byte
	err := c.limiter.Do(func() error {
		var err error
		body, err = c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol)+"?"+params.Encode())
		return err
	})
	if err != nil {
		return nil, err
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.ParseError{Provider: "yahoo", Err: err}
	}

	if result.Chart.Error != nil {
		return nil, &domain.ProviderError{Provider: "yahoo", Message: fmt.Sprint(result.Chart.Error)}
	}

	if len(result.Chart.Result) == 0 {
		return nil, &domain.NotFoundError{Provider: "yahoo", Symbol: symbol}
	}

	chartData := result.Chart.Result[0]
	if len(chartData.Indicators.Quote) == 0 {
		return nil, &domain.NotFoundError{Provider: "yahoo", Symbol: symbol}
	}

	quote := chartData.Indicators.Quote[0]

	var candles []domain.Candle
	for i, ts := range chartData.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// Yahoo pads holidays with all-zero rows.
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		candles = append(candles, domain.Candle{
			Date:   time.Unix(ts, 0),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("days", days).
		Int("count", len(candles)).
		Msg("Fetched historical prices")

	return candles, nil
}

// MarketNews fetches general market news via the search endpoint,
// anchored on SPY as a proxy for the broad market. At most max
// articles are returned.
func (c *Client) MarketNews(ctx context.Context, max int) ([]domain.NewsArticle, error) {
	params := url.Values{}
	params.Add("q", "SPY")
	params.Add("newsCount", fmt.Sprint(max))

	var body []byte
	err := c.limiter.Do(func() error {
		var err error
		body, err = c.get(ctx, "/v1/finance/search?"+params.Encode())
		return err
	})
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.ParseError{Provider: "yahoo", Err: err}
	}

	articles := make([]domain.NewsArticle, 0, len(result.News))
	for i, item := range result.News {
		if i >= max {
			break
		}

		summary := item.Summary
		if summary == "" {
			summary = item.Title
		}

		image := ""
		if len(item.Thumbnail.Resolutions) > 0 {
			image = item.Thumbnail.Resolutions[0].URL
		}

		source := item.Publisher
		if source == "" {
			source = "Yahoo Finance"
		}

		articles = append(articles, domain.NewsArticle{
			ID:       int64(i),
			Headline: item.Title,
			Summary:  summary,
			Source:   source,
			URL:      item.Link,
			Datetime: item.ProviderPublishTime,
			Image:    image,
			Related:  strings.Join(item.RelatedTickers, ", "),
		})
	}

	return articles, nil
}

// get performs a GET request and returns the raw body. Transport
// failures and non-200 statuses translate to NetworkError.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &domain.NetworkError{Provider: "yahoo", Err: err}
	}

	// Yahoo rejects requests without browser-looking headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Provider: "yahoo", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Provider: "yahoo", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.NetworkError{
			Provider: "yahoo",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return body, nil
}

// rangeForDays maps a trailing day count onto the chart API's coarse
// range buckets.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	default:
		return "1y"
	}
}
