package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
)

// ConnState is the lifecycle state of the streaming connection.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// DialFunc opens a connection to the collector.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCPOption configures a TCPTransport.
type TCPOption func(*TCPTransport)

// WithDialer replaces the network dialer, mainly for tests.
func WithDialer(dial DialFunc) TCPOption {
	return func(t *TCPTransport) {
		t.dial = dial
	}
}

// TCPTransport streams NUL-terminated GELF documents over one TCP or TLS
// connection. Connecting is triggered by Send and never retried on its own.
type TCPTransport struct {
	cfg    config.TransportConfig
	dial   DialFunc
	logger zerolog.Logger

	mu      sync.Mutex
	runCtx  context.Context
	state   ConnState
	conn    net.Conn
	pending [][]byte
	dials   int
	stopped bool
	wg      sync.WaitGroup
}

// NewTCPTransport creates a streaming transport for cfg.
func NewTCPTransport(cfg config.TransportConfig, log zerolog.Logger, opts ...TCPOption) *TCPTransport {
	t := &TCPTransport{
		cfg:    cfg,
		dial:   defaultDialer(cfg),
		logger: log.With().Str("component", "TCPTransport").Logger(),
		runCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func defaultDialer(cfg config.TransportConfig) DialFunc {
	nd := &net.Dialer{Timeout: cfg.DialTimeout}
	if !cfg.TLS {
		return nd.DialContext
	}

	td := &tls.Dialer{
		NetDialer: nd,
		Config: &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit operator choice
		},
	}
	return td.DialContext
}

// Name returns the transport identifier.
func (t *TCPTransport) Name() string {
	if t.cfg.TLS {
		return "tls"
	}
	return "tcp"
}

// Start records the context that bounds connect attempts.
func (t *TCPTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	t.runCtx = ctx
	t.mu.Unlock()

	t.logger.Debug().
		Str("address", t.cfg.Address()).
		Bool("tls", t.cfg.TLS).
		Bool("insecure_skip_verify", t.cfg.InsecureSkipVerify).
		Msg("tcp transport started")
	return nil
}

// State returns the current connection state.
func (t *TCPTransport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// DialCount returns the number of connect attempts made so far.
func (t *TCPTransport) DialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

// Send writes msg immediately when connected. Otherwise it starts a connect
// attempt (if none is running) and parks msg until the connection opens.
// While connecting, a newer message replaces the parked one unless
// QueueWhileConnecting is set.
func (t *TCPTransport) Send(ctx context.Context, msg []byte) error {
	if bytes.IndexByte(msg, 0) >= 0 {
		return ErrEmbeddedNull
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrStopped
	}

	switch t.state {
	case Connected:
		return t.writeLocked(msg)

	case Connecting:
		if t.cfg.QueueWhileConnecting {
			t.pending = append(t.pending, msg)
			return nil
		}
		if len(t.pending) > 0 {
			t.logger.Debug().Msg("connect in progress, replacing parked message")
		}
		t.pending = [][]byte{msg}
		return nil

	default:
		t.pending = [][]byte{msg}
		t.state = Connecting
		t.dials++
		t.wg.Add(1)
		go t.connect(t.runCtx)
		return nil
	}
}

// connect dials the collector and flushes the parked messages on success.
func (t *TCPTransport) connect(ctx context.Context) {
	defer t.wg.Done()

	addr := t.cfg.Address()
	conn, err := t.dial(ctx, "tcp", addr)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.logger.Error().Err(err).
			Str("address", addr).
			Int("dropped", len(t.pending)).
			Msg("connect to collector failed")
		t.state = Disconnected
		t.pending = nil
		return
	}

	if t.stopped {
		_ = conn.Close()
		t.state = Disconnected
		t.pending = nil
		return
	}

	t.conn = conn
	t.state = Connected
	t.logger.Info().Str("address", addr).Msg("connected to collector")

	pending := t.pending
	t.pending = nil
	for _, msg := range pending {
		if err := t.writeLocked(msg); err != nil {
			return
		}
	}

	t.wg.Add(1)
	go t.watch(conn)
}

// watch drains the connection until the collector closes it, then marks
// the transport disconnected.
func (t *TCPTransport) watch(conn net.Conn) {
	defer t.wg.Done()

	_, err := io.Copy(io.Discard, conn)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != conn {
		return
	}

	_ = conn.Close()
	t.conn = nil
	t.state = Disconnected

	if err != nil {
		t.logger.Error().Err(err).Msg("connection error")
	}
	t.logger.Info().Msg("disconnected from collector")
}

// writeLocked sends one framed message (caller must hold lock).
func (t *TCPTransport) writeLocked(msg []byte) error {
	frame := make([]byte, len(msg)+1)
	copy(frame, msg)

	if _, err := t.conn.Write(frame); err != nil {
		t.logger.Error().Err(err).Msg("write to collector failed")
		_ = t.conn.Close()
		t.conn = nil
		t.state = Disconnected
		return fmt.Errorf("writing to collector: %w", err)
	}
	return nil
}

// Stop closes the connection and waits for background goroutines.
func (t *TCPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	t.stopped = true
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.state = Disconnected
	t.pending = nil
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Debug().Msg("tcp transport stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
