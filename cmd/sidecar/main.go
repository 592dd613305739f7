// Analytics sidecar: serves technical indicators over line-delimited
// JSON-RPC on stdio. The main service spawns one instance and keeps it
// alive for the session; stdout carries protocol lines only, so all
// logging goes to stderr.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/clients/yahoo"
	"github.com/aristath/morningreport/pkg/formulas"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolCallParams struct {
	Name      string `json:"name"`
	Arguments struct {
		Symbol    string `json:"symbol"`
		Timeframe string `json:"timeframe"`
	} `json:"arguments"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type technicalIndicators struct {
	RSI        *float64 `json:"rsi"`
	RSISignal  string   `json:"rsi_signal,omitempty"`
	SMA20      *float64 `json:"sma20,omitempty"`
	EMA50      *float64 `json:"ema50,omitempty"`
	Volatility float64  `json:"volatility,omitempty"`
}

type bollingerAnalysis struct {
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
}

type analysis struct {
	Symbol              string              `json:"symbol"`
	TechnicalIndicators technicalIndicators `json:"technical_indicators"`
	BollingerAnalysis   *bollingerAnalysis  `json:"bollinger_analysis,omitempty"`
}

type server struct {
	yahoo *yahoo.Client
	out   *json.Encoder
	log   zerolog.Logger
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	srv := &server{
		yahoo: yahoo.NewClient(500*time.Millisecond, log),
		out:   json.NewEncoder(os.Stdout),
		log:   log.With().Str("component", "sidecar").Logger(),
	}

	srv.log.Info().Msg("Analytics sidecar ready")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			srv.log.Warn().Err(err).Msg("Unparseable request line")
			continue
		}

		srv.handle(req)
	}

	srv.log.Info().Msg("stdin closed, exiting")
}

func (s *server) handle(req request) {
	switch req.Method {
	case "initialize":
		s.reply(req, map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]string{"name": "morningreport-analytics", "version": "1.0.0"},
		}, nil)

	case "notifications/initialized":
		// Notification, nothing to send back.

	case "tools/call":
		s.handleToolCall(req)

	default:
		s.reply(req, nil, &rpcError{Code: -32601, Message: "method not found: " + req.Method})
	}
}

func (s *server) handleToolCall(req request) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.reply(req, nil, &rpcError{Code: -32602, Message: "invalid params"})
		return
	}

	if params.Name != "stock_analysis" {
		s.reply(req, nil, &rpcError{Code: -32602, Message: "unknown tool: " + params.Name})
		return
	}

	result, err := s.analyze(params.Arguments.Symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", params.Arguments.Symbol).Msg("Analysis failed")
		s.reply(req, nil, &rpcError{Code: -32000, Message: err.Error()})
		return
	}

	text, err := json.Marshal(result)
	if err != nil {
		s.reply(req, nil, &rpcError{Code: -32000, Message: err.Error()})
		return
	}

	s.reply(req, map[string]interface{}{
		"content": []contentBlock{{Type: "text", Text: string(text)}},
	}, nil)
}

// analyze fetches roughly three months of daily closes and computes
// the indicator set for one symbol.
func (s *server) analyze(symbol string) (*analysis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	candles, err := s.yahoo.Historical(ctx, symbol, 90)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}

	if len(closes) < 15 {
		return nil, fmt.Errorf("insufficient history for %s: %d closes", symbol, len(closes))
	}

	result := &analysis{Symbol: symbol}

	result.TechnicalIndicators.RSI = formulas.CalculateRSI(closes, 14)
	if result.TechnicalIndicators.RSI != nil {
		result.TechnicalIndicators.RSISignal = formulas.RSISignal(*result.TechnicalIndicators.RSI)
	}
	result.TechnicalIndicators.SMA20 = formulas.SMA(closes, 20)
	result.TechnicalIndicators.EMA50 = formulas.EMA(closes, 50)
	result.TechnicalIndicators.Volatility = formulas.AnnualizedVolatility(formulas.CalculateReturns(closes))

	if middle, upper, lower := formulas.BollingerBands(closes, 20, 2); middle != 0 {
		result.BollingerAnalysis = &bollingerAnalysis{Middle: middle, Upper: upper, Lower: lower}
	}

	return result, nil
}

// reply writes one response line for requests that carry an id.
func (s *server) reply(req request, result interface{}, rpcErr *rpcError) {
	if req.ID == nil {
		return
	}

	if err := s.out.Encode(response{JSONRPC: "2.0", ID: *req.ID, Result: result, Error: rpcErr}); err != nil {
		s.log.Error().Err(err).Msg("Failed to write response")
	}
}
