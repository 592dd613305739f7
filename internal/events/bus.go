package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event names pushed to the presentation layer. The wire names match
// the renderer's IPC channel names.
const (
	MarketDataUpdated     = "market-data:updated"
	EconomicEventsUpdated = "economic-events:updated"
	StockNewsUpdated      = "stock-news:updated"
	WorldMarketsUpdated   = "world-markets:updated"
	WatchlistUpdated      = "watchlist-data:updated"
	ConstituentsUpdated   = "sector-constituents:updated"
	FetchError            = "fetch-error"

	// All matches every event; used by transports that forward the
	// whole stream.
	All = "*"
)

// Handler receives a published payload.
type Handler func(event string, payload interface{})

// Token identifies one subscription for later removal.
type Token string

// Bus is a minimal in-process observer registry. The core emits named
// events with payloads and assumes nothing about who listens; the
// HTTP/WebSocket layer subscribes on behalf of the presentation layer.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[Token]Handler
	log      zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[Token]Handler),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for one event name (or All) and
// returns a token for Unsubscribe.
func (b *Bus) Subscribe(event string, h Handler) Token {
	token := Token(uuid.NewString())

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[Token]Handler)
	}
	b.handlers[event][token] = h

	return token
}

// Unsubscribe removes a subscription. Unknown tokens are a no-op.
func (b *Bus) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for event, hs := range b.handlers {
		if _, ok := hs[token]; ok {
			delete(hs, token)
			if len(hs) == 0 {
				delete(b.handlers, event)
			}
			return
		}
	}
}

// Publish delivers payload to every handler of the event plus every
// wildcard handler. Handlers run synchronously on the caller's
// goroutine, against a snapshot so they may unsubscribe themselves.
func (b *Bus) Publish(event string, payload interface{}) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers[event])+len(b.handlers[All]))
	for _, h := range b.handlers[event] {
		snapshot = append(snapshot, h)
	}
	if event != All {
		for _, h := range b.handlers[All] {
			snapshot = append(snapshot, h)
		}
	}
	b.mu.RUnlock()

	b.log.Debug().
		Str("event", event).
		Int("handlers", len(snapshot)).
		Time("at", time.Now()).
		Msg("Event published")

	for _, h := range snapshot {
		h(event, payload)
	}
}
