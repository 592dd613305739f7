package server

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/morningreport/internal/events"
)

func newTestServer() *Server {
	return New(Config{
		Port: 0,
		Log:  zerolog.Nop(),
		Bus:  events.NewBus(zerolog.Nop()),
	})
}

// TestSubscribeClientDelivers tests that published events land on the
// connection queue in order.
func TestSubscribeClientDelivers(t *testing.T) {
	s := newTestServer()

	queue := make(chan wsEnvelope, 4)
	overflow := make(chan struct{})
	token := s.subscribeClient(queue, overflow)
	defer s.bus.Unsubscribe(token)

	s.bus.Publish(events.StockNewsUpdated, "first")
	s.bus.Publish(events.WorldMarketsUpdated, "second")

	env := <-queue
	assert.Equal(t, events.StockNewsUpdated, env.Event)
	assert.Equal(t, "first", env.Payload)

	env = <-queue
	assert.Equal(t, events.WorldMarketsUpdated, env.Event)

	select {
	case <-overflow:
		t.Fatal("overflow signalled with queue headroom")
	default:
	}
}

// TestSubscribeClientOverflowOnce hammers a full queue from many
// publishers at once; the overflow channel must close exactly once
// without panicking any of them. Run with -race.
func TestSubscribeClientOverflowOnce(t *testing.T) {
	s := newTestServer()

	for round := 0; round < 50; round++ {
		queue := make(chan wsEnvelope, 1)
		overflow := make(chan struct{})
		token := s.subscribeClient(queue, overflow)

		// Occupy the only slot so every publish below overflows.
		s.bus.Publish(events.MarketDataUpdated, "fill")

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.bus.Publish(events.WorldMarketsUpdated, "spill")
			}()
		}
		wg.Wait()

		select {
		case <-overflow:
		default:
			t.Fatal("overflow not signalled")
		}

		require.Len(t, queue, 1)
		s.bus.Unsubscribe(token)
	}
}
