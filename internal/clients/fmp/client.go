package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/clients/throttle"
	"github.com/aristath/morningreport/internal/domain"
)

const defaultBaseURL = "https://financialmodelingprep.com/api/v3"

// Client is a Financial Modeling Prep API client, used for the
// economic calendar (month window) and ETF holdings lookups.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *throttle.Limiter
	log     zerolog.Logger
}

// NewClient creates a new FMP client.
func NewClient(apiKey string, delay time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: throttle.New(delay),
		log:     log.With().Str("client", "fmp").Logger(),
	}
}

// EconomicCalendar fetches economic events from today through the end
// of the current month. This is the canonical calendar provider.
func (c *Client) EconomicCalendar(ctx context.Context) ([]domain.EconomicEvent, error) {
	now := time.Now()
	endOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())

	body, err := c.get(ctx, "/economic_calendar", url.Values{
		"from": {now.Format("2006-01-02")},
		"to":   {endOfMonth.Format("2006-01-02")},
	})
	if err != nil {
		return nil, err
	}

	var raw []calendarEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ParseError{Provider: "fmp", Err: err}
	}

	events := make([]domain.EconomicEvent, 0, len(raw))
	for _, e := range raw {
		country := e.Country
		if country == "" {
			country = "US"
		}

		events = append(events, domain.EconomicEvent{
			Date:     e.Date,
			Country:  country,
			Event:    e.Event,
			Impact:   parseImpact(e.Impact),
			Actual:   formatNumber(e.Actual),
			Estimate: formatNumber(e.Estimate),
			Previous: formatNumber(e.Previous),
		})
	}

	return events, nil
}

// ETFHoldings fetches the top holdings of an ETF, ordered as the
// provider ranks them (largest weight first).
func (c *Client) ETFHoldings(ctx context.Context, symbol string) ([]domain.ETFConstituent, error) {
	body, err := c.get(ctx, "/etf-holder/"+url.PathEscape(symbol), url.Values{})
	if err != nil {
		return nil, err
	}

	var raw []etfHolding
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ParseError{Provider: "fmp", Err: err}
	}

	if len(raw) == 0 {
		return nil, &domain.NotFoundError{Provider: "fmp", Symbol: symbol}
	}

	holdings := make([]domain.ETFConstituent, 0, len(raw))
	for _, h := range raw {
		if h.Asset == "" {
			continue
		}
		holdings = append(holdings, domain.ETFConstituent{
			Symbol:         h.Asset,
			HoldingName:    h.Name,
			HoldingPercent: h.WeightPercentage,
		})
	}

	return holdings, nil
}

// get performs a GET request with the API key appended. FMP signals
// application errors via "error" or "Error Message" keys in an object
// payload; valid payloads for our endpoints are arrays.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.NetworkError{Provider: "fmp", Err: err}
	}

	var body []byte
	err = c.limiter.Do(func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			return &domain.NetworkError{Provider: "fmp", Err: err}
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &domain.NetworkError{Provider: "fmp", Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			return &domain.NetworkError{
				Provider: "fmp",
				Err:      fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(body) > 0 && body[0] == '{' {
		var probe struct {
			Error        string `json:"error"`
			ErrorMessage string `json:"Error Message"`
		}
		if err := json.Unmarshal(body, &probe); err == nil {
			if probe.Error != "" {
				return nil, &domain.ProviderError{Provider: "fmp", Message: probe.Error}
			}
			if probe.ErrorMessage != "" {
				return nil, &domain.ProviderError{Provider: "fmp", Message: probe.ErrorMessage}
			}
		}
	}

	return body, nil
}

type calendarEvent struct {
	Date     string   `json:"date"`
	Country  string   `json:"country"`
	Event    string   `json:"event"`
	Impact   string   `json:"impact"`
	Actual   *float64 `json:"actual"`
	Estimate *float64 `json:"estimate"`
	Previous *float64 `json:"previous"`
}

type etfHolding struct {
	Asset            string  `json:"asset"`
	Name             string  `json:"name"`
	WeightPercentage float64 `json:"weightPercentage"`
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

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
