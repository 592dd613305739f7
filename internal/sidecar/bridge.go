package sidecar

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/morningreport/internal/domain"
)

// ErrUnavailable is returned when the analytics process is disabled by
// configuration or could not be constructed at startup.
var ErrUnavailable = errors.New("analytics sidecar unavailable")

type state int

const (
	stateUninitialized state = iota
	stateStarting
	stateInitialized
)

type rpcResult struct {
	result json.RawMessage
	err    error
}

// Config holds bridge settings.
type Config struct {
	// Command is the argv of the analytics process. Empty disables the
	// bridge entirely; RSI enrichment is then skipped.
	Command []string
	// Timeout bounds each individual request.
	Timeout time.Duration
	// CallGap is the pause between per-symbol lookups in a batch.
	CallGap time.Duration
}

// Bridge manages a long-lived analytics subprocess spoken to with
// line-delimited JSON-RPC messages. All mutable state - the process
// handle, the pending-request map, the init flag - lives on the
// instance; lifecycle is Start-on-first-use / Terminate.
type Bridge struct {
	command []string
	timeout time.Duration
	callGap time.Duration
	sleep   func(time.Duration)
	log     zerolog.Logger

	mu         sync.Mutex
	state      state
	disabled   bool
	generation int
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	initDone   chan struct{}
	initErr    error
	nextID     int64
	pending    map[int64]chan rpcResult

	writeMu sync.Mutex
}

// New creates a bridge for the given subprocess command.
func New(cfg Config, log zerolog.Logger) *Bridge {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CallGap == 0 {
		cfg.CallGap = 500 * time.Millisecond
	}

	return &Bridge{
		command:  cfg.Command,
		timeout:  cfg.Timeout,
		callGap:  cfg.CallGap,
		sleep:    time.Sleep,
		log:      log.With().Str("component", "sidecar").Logger(),
		disabled: len(cfg.Command) == 0,
		pending:  make(map[int64]chan rpcResult),
	}
}

// StockRSI fetches the current RSI for a symbol from the analytics
// process, starting it on first use. A timeout fails only this request.
func (b *Bridge) StockRSI(ctx context.Context, symbol string) (float64, error) {
	if err := b.ensureStarted(ctx); err != nil {
		return 0, err
	}

	raw, err := b.call(ctx, "tools/call", toolCallParams{
		Name: "stock_analysis",
		Arguments: toolArguments{
			Symbol:    symbol,
			Timeframe: "1d",
		},
	})
	if err != nil {
		return 0, err
	}

	var result toolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, &domain.ParseError{Provider: "sidecar", Err: err}
	}

	if len(result.Content) == 0 {
		return 0, &domain.ParseError{Provider: "sidecar", Err: errors.New("empty tool result")}
	}

	var analysis analysisResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &analysis); err != nil {
		return 0, &domain.ParseError{Provider: "sidecar", Err: err}
	}

	if analysis.TechnicalIndicators.RSI == nil {
		return 0, &domain.NotFoundError{Provider: "sidecar", Symbol: symbol}
	}

	return *analysis.TechnicalIndicators.RSI, nil
}

// BatchRSI looks up RSI for each symbol sequentially with a small gap
// between calls. Failures are swallowed per symbol: the returned map
// simply lacks entries for symbols that could not be resolved.
func (b *Bridge) BatchRSI(ctx context.Context, symbols []string) map[string]float64 {
	results := make(map[string]float64, len(symbols))

	for i, symbol := range symbols {
		rsi, err := b.StockRSI(ctx, symbol)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return results
			}
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("RSI lookup failed")
			continue
		}
		results[symbol] = rsi

		if i < len(symbols)-1 {
			b.sleep(b.callGap)
		}
	}

	return results
}

// Terminate kills the subprocess and clears all pending state. The
// next use triggers a fresh start cycle.
func (b *Bridge) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked(errors.New("sidecar terminated"))
	b.disabled = len(b.command) == 0
}

// ensureStarted spawns and handshakes the subprocess exactly once.
// Concurrent callers during startup share the same in-flight
// initialization instead of racing to spawn duplicates.
func (b *Bridge) ensureStarted(ctx context.Context) error {
	b.mu.Lock()

	if b.disabled {
		b.mu.Unlock()
		return ErrUnavailable
	}

	switch b.state {
	case stateInitialized:
		b.mu.Unlock()
		return nil

	case stateStarting:
		done := b.initDone
		b.mu.Unlock()
		select {
		case <-done:
			b.mu.Lock()
			err := b.initErr
			b.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.state = stateStarting
	b.initDone = make(chan struct{})
	done := b.initDone
	b.mu.Unlock()

	err := b.start(ctx)

	b.mu.Lock()
	b.initErr = err
	if err != nil {
		// Could not construct the subprocess: surface once, disable
		// enrichment, keep the rest of the system running.
		b.log.Error().Err(err).Msg("Failed to start analytics sidecar, RSI enrichment disabled")
		b.teardownLocked(err)
		b.disabled = true
		err = ErrUnavailable
	} else {
		b.state = stateInitialized
	}
	close(done)
	b.mu.Unlock()

	return err
}

// start spawns the subprocess, wires the read loop and performs the
// initialize handshake followed by the initialized notification.
func (b *Bridge) start(ctx context.Context) error {
	cmd := exec.Command(b.command[0], b.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s: %w", b.command[0], err)
	}

	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.cmd = cmd
	b.stdin = stdin
	b.mu.Unlock()

	go b.readLoop(stdout, gen)
	go b.drainStderr(stderr)

	b.log.Info().Str("command", b.command[0]).Msg("Analytics sidecar started")

	handshakeCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	_, err = b.call(handshakeCtx, "initialize", initializeParams{
		ProtocolVersion: "2024-11-05",
		ClientInfo: clientInfo{
			Name:    "morningreport",
			Version: "1.0.0",
		},
	})
	if err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("initialize handshake: %w", err)
	}

	if err := b.notify("notifications/initialized", nil); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("initialized notification: %w", err)
	}

	return nil
}

// call sends a request with a fresh id and waits for the correlated
// response, the per-request timeout or context cancellation, whichever
// comes first. On timeout only this request's pending entry is removed.
func (b *Bridge) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	b.mu.Lock()
	if b.stdin == nil {
		b.mu.Unlock()
		return nil, ErrUnavailable
	}
	b.nextID++
	id := b.nextID
	ch := make(chan rpcResult, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	if err := b.writeMessage(rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		b.removePending(id)
		return nil, &domain.NetworkError{Provider: "sidecar", Err: err}
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.result, res.err
	case <-timer.C:
		b.removePending(id)
		return nil, &domain.TimeoutError{Op: method}
	case <-ctx.Done():
		b.removePending(id)
		return nil, ctx.Err()
	}
}

// notify sends a request without an id; no response is expected.
func (b *Bridge) notify(method string, params interface{}) error {
	return b.writeMessage(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
}

// writeMessage serializes one message as a single line. The write lock
// keeps concurrent lines from interleaving on the pipe.
func (b *Bridge) writeMessage(msg rpcRequest) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	stdin := b.stdin
	b.mu.Unlock()
	if stdin == nil {
		return ErrUnavailable
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err = stdin.Write(append(data, '\n'))
	return err
}

// readLoop parses stdout line by line. Each complete line resolves or
// rejects exactly one pending request by id; lines without a known id
// are notifications or strays and are logged at debug.
func (b *Bridge) readLoop(r io.Reader, gen int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			b.log.Warn().Err(err).Str("line", string(line)).Msg("Unparseable sidecar line")
			continue
		}

		if resp.ID == nil {
			b.log.Debug().Msg("Sidecar notification")
			continue
		}

		b.mu.Lock()
		ch, ok := b.pending[*resp.ID]
		if ok {
			delete(b.pending, *resp.ID)
		}
		b.mu.Unlock()

		if !ok {
			b.log.Debug().Int64("id", *resp.ID).Msg("Response for unknown request id")
			continue
		}

		if resp.Error != nil {
			ch <- rpcResult{err: &domain.ProviderError{Provider: "sidecar", Message: resp.Error.Message}}
		} else {
			ch <- rpcResult{result: resp.Result}
		}
	}

	// Pipe closed: the process died or was terminated. Fail whatever
	// is still pending and reset so the next use respawns - unless a
	// newer generation already took over.
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation == gen && b.state != stateUninitialized {
		b.log.Warn().Msg("Analytics sidecar exited")
		b.teardownLocked(errors.New("sidecar process exited"))
	}
}

func (b *Bridge) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		b.log.Debug().Str("stderr", scanner.Text()).Msg("Sidecar stderr")
	}
}

// teardownLocked kills the process if running, fails all pending
// requests and resets to the uninitialized state. Caller holds b.mu.
func (b *Bridge) teardownLocked(cause error) {
	if b.cmd != nil && b.cmd.Process != nil {
		cmd := b.cmd
		_ = cmd.Process.Kill()
		go func() { _ = cmd.Wait() }() // reap
	}
	b.cmd = nil
	b.stdin = nil
	b.generation++

	for id, ch := range b.pending {
		ch <- rpcResult{err: &domain.NetworkError{Provider: "sidecar", Err: cause}}
		delete(b.pending, id)
	}

	b.state = stateUninitialized
}

func (b *Bridge) removePending(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}
