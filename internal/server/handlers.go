package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "morningreport",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleFetchAll kicks off a full refresh of the cached categories.
// The work runs in the background; results arrive as events.
func (s *Server) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	go s.dispatcher.FetchAll(context.Background())

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "fetching"})
}

type watchlistFetchRequest struct {
	Symbols []string `json:"symbols"`
}

// handleFetchWatchlist fetches live quotes for the posted symbols, or
// for the server-side watchlist when the body is empty.
func (s *Server) handleFetchWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistFetchRequest
	if r.Body != nil {
		// An empty or absent body falls back to the stored watchlist.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = s.watchlistSymbols()
	}

	go s.dispatcher.FetchWatchlist(context.Background(), symbols)

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "fetching",
		"symbols": symbols,
	})
}

// handleFetchConstituents fetches the holdings breakdown for one
// sector ETF.
func (s *Server) handleFetchConstituents(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	go s.dispatcher.FetchSectorConstituents(context.Background(), symbol)

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "fetching",
		"symbol": symbol,
	})
}

// handleWatchlistGet returns the stored watchlist.
func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": s.watchlistSymbols(),
	})
}

// handleWatchlistAdd adds a symbol to the watchlist and refreshes the
// watchlist quotes in the background.
func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	s.watchlistMu.Lock()
	s.watchlist[symbol] = struct{}{}
	s.watchlistMu.Unlock()

	s.dispatcher.NotifyWatchlistAdd(symbol)
	go s.dispatcher.FetchWatchlist(context.Background(), s.watchlistSymbols())

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "added",
		"symbol":  symbol,
		"symbols": s.watchlistSymbols(),
	})
}

// handleWatchlistRemove removes a symbol and refreshes the remaining
// quotes.
func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	s.watchlistMu.Lock()
	delete(s.watchlist, symbol)
	s.watchlistMu.Unlock()

	s.dispatcher.NotifyWatchlistRemove(symbol)
	go s.dispatcher.FetchWatchlist(context.Background(), s.watchlistSymbols())

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "removed",
		"symbol":  symbol,
		"symbols": s.watchlistSymbols(),
	})
}

// MarketsStatusResponse represents market status
type MarketsStatusResponse struct {
	Markets     []MarketInfo `json:"markets"`
	OpenCount   int          `json:"open_count"`
	ClosedCount int          `json:"closed_count"`
	LastUpdated string       `json:"last_updated"`
}

// MarketInfo represents status of a single market
type MarketInfo struct {
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
	IsOpen   bool   `json:"is_open"`
	Timezone string `json:"timezone"`
}

// handleMarketsStatus returns market open/close status
func (s *Server) handleMarketsStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.marketHours.GetAllMarketStatuses()

	markets := make([]MarketInfo, 0, len(statuses))
	openCount := 0

	for _, status := range statuses {
		markets = append(markets, MarketInfo{
			Exchange: status.Exchange,
			Name:     status.Name,
			IsOpen:   status.IsOpen,
			Timezone: status.Timezone,
		})
		if status.IsOpen {
			openCount++
		}
	}

	s.writeJSON(w, http.StatusOK, MarketsStatusResponse{
		Markets:     markets,
		OpenCount:   openCount,
		ClosedCount: len(markets) - openCount,
		LastUpdated: time.Now().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
