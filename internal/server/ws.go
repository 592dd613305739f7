package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/morningreport/internal/events"
)

// wsEnvelope is one pushed event on the wire.
type wsEnvelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// subscribeClient feeds one connection's send queue from a wildcard
// subscription. A full queue closes overflow exactly once, however
// many publishers hit it concurrently.
func (s *Server) subscribeClient(queue chan wsEnvelope, overflow chan struct{}) events.Token {
	var once sync.Once
	return s.bus.Subscribe(events.All, func(event string, payload interface{}) {
		select {
		case queue <- wsEnvelope{Event: event, Payload: payload}:
		default:
			once.Do(func() { close(overflow) })
		}
	})
}

// handleWebSocket streams every published event to the client. Each
// connection gets its own wildcard subscription and a buffered send
// queue; a client too slow to drain the queue is disconnected rather
// than allowed to block publishers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	s.log.Info().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	queue := make(chan wsEnvelope, 64)
	overflow := make(chan struct{})

	token := s.subscribeClient(queue, overflow)
	defer s.bus.Unsubscribe(token)

	ctx := r.Context()

	// Reader goroutine: the client sends nothing meaningful, but
	// reading surfaces close frames and keeps pings flowing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case env := <-queue:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, env)
			cancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}

		case <-overflow:
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("WebSocket client too slow, dropping")
			conn.Close(websocket.StatusPolicyViolation, "event queue overflow")
			return

		case <-readDone:
			s.log.Info().Str("remote", r.RemoteAddr).Msg("WebSocket client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-ctx.Done():
			return
		}
	}
}
