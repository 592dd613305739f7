package fmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/morningreport/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", 0, zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

// TestEconomicCalendar tests month-window calendar parsing.
func TestEconomicCalendar(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/economic_calendar", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`[
			{"date":"2026-09-15 12:30:00","country":"US","event":"FOMC Rate Decision",
			 "impact":"High","actual":null,"estimate":5.25,"previous":5.5},
			{"date":"2026-09-20 08:00:00","event":"GDP"}
		]`))
	})

	events, err := c.EconomicCalendar(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "FOMC Rate Decision", events[0].Event)
	assert.Equal(t, domain.ImpactHigh, events[0].Impact)
	assert.Equal(t, "", events[0].Actual)
	assert.Equal(t, "5.25", events[0].Estimate)
	assert.Equal(t, "5.5", events[0].Previous)
	assert.Equal(t, "US", events[1].Country)
	assert.Equal(t, domain.ImpactMedium, events[1].Impact)
}

// TestErrorMessagePayload tests FMP's "Error Message" error shape.
func TestErrorMessagePayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Invalid API KEY"}`))
	})

	_, err := c.EconomicCalendar(context.Background())
	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "Invalid API KEY")
}

// TestETFHoldings tests holdings parsing and ordering.
func TestETFHoldings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/etf-holder/XLK", r.URL.Path)
		w.Write([]byte(`[
			{"asset":"AAPL","name":"Apple Inc.","weightPercentage":22.5},
			{"asset":"MSFT","name":"Microsoft Corp.","weightPercentage":21.9},
			{"asset":"","name":"Cash Component","weightPercentage":0.1}
		]`))
	})

	holdings, err := c.ETFHoldings(context.Background(), "XLK")
	require.NoError(t, err)
	// The unnamed cash line is dropped, order is preserved.
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, 22.5, holdings[0].HoldingPercent)
	assert.Equal(t, "MSFT", holdings[1].Symbol)
}

// TestETFHoldingsEmpty tests the NotFoundError for symbols with no
// holdings data.
func TestETFHoldingsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.ETFHoldings(context.Background(), "NOPE")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
