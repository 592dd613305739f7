package events

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestSubscribePublish tests basic delivery.
func TestSubscribePublish(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got interface{}
	bus.Subscribe(StockNewsUpdated, func(event string, payload interface{}) {
		got = payload
	})

	bus.Publish(StockNewsUpdated, "articles")
	assert.Equal(t, "articles", got)
}

// TestPublishOnlyMatchingEvent tests that handlers see only their event.
func TestPublishOnlyMatchingEvent(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(MarketDataUpdated, func(string, interface{}) { calls++ })

	bus.Publish(StockNewsUpdated, nil)
	assert.Equal(t, 0, calls)

	bus.Publish(MarketDataUpdated, nil)
	assert.Equal(t, 1, calls)
}

// TestUnsubscribe tests that removed handlers stop receiving.
func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	token := bus.Subscribe(FetchError, func(string, interface{}) { calls++ })

	bus.Publish(FetchError, "boom")
	bus.Unsubscribe(token)
	bus.Publish(FetchError, "boom")

	assert.Equal(t, 1, calls)
}

// TestWildcardSubscription tests that All receives every event with
// its original name.
func TestWildcardSubscription(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var seen []string
	bus.Subscribe(All, func(event string, payload interface{}) {
		seen = append(seen, event)
	})

	bus.Publish(MarketDataUpdated, nil)
	bus.Publish(WatchlistUpdated, nil)

	assert.Equal(t, []string{MarketDataUpdated, WatchlistUpdated}, seen)
}

// TestConcurrentPublishSubscribe hammers the bus; run with -race.
func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				token := bus.Subscribe(WorldMarketsUpdated, func(string, interface{}) {})
				bus.Publish(WorldMarketsUpdated, j)
				bus.Unsubscribe(token)
			}
		}()
	}
	wg.Wait()
}
