package sidecar

import "encoding/json"

// Line-delimited JSON-RPC 2.0 messages exchanged with the analytics
// process over stdin/stdout. One message per line; requests and
// responses correlate by id, notifications carry none.

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      *int64      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	Capabilities    struct{}   `json:"capabilities"`
	ClientInfo      clientInfo `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolCallParams struct {
	Name      string        `json:"name"`
	Arguments toolArguments `json:"arguments"`
}

type toolArguments struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange,omitempty"`
	Timeframe string `json:"timeframe"`
}

// toolCallResult is the MCP-shaped tool response: a list of content
// blocks whose text blocks carry a JSON document.
type toolCallResult struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// analysisResult is the JSON document inside the first text block.
type analysisResult struct {
	TechnicalIndicators struct {
		RSI       *float64 `json:"rsi"`
		RSISignal string   `json:"rsi_signal,omitempty"`
		SMA20     *float64 `json:"sma20,omitempty"`
		EMA50     *float64 `json:"ema50,omitempty"`
	} `json:"technical_indicators"`
}
