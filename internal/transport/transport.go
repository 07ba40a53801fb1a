// Package transport delivers encoded GELF messages to the collector.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
)

var (
	// ErrEmbeddedNull is returned for a payload that would break NUL framing.
	ErrEmbeddedNull = errors.New("payload contains a NUL byte")

	// ErrStopped is returned by Send after Stop.
	ErrStopped = errors.New("transport stopped")
)

// Transport defines the contract for delivering messages to the collector.
// The strategy is chosen once at startup and fixed for the process lifetime.
type Transport interface {
	// Start prepares the transport. Connections opened later live until
	// ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Send hands one encoded GELF document to the transport. It does not
	// wait for network I/O to complete; delivery failures are logged, not retried.
	Send(ctx context.Context, msg []byte) error

	// Stop closes connections and waits for in-flight work until ctx expires.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this transport.
	Name() string
}

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ensure http.Client implements HTTPDoer.
var _ HTTPDoer = (*http.Client)(nil)

// New builds the transport selected by cfg.Protocol.
func New(cfg config.TransportConfig, log zerolog.Logger) (Transport, error) {
	switch cfg.Protocol {
	case config.ProtocolTCP:
		return NewTCPTransport(cfg, log), nil
	case config.ProtocolHTTP:
		return NewHTTPTransport(cfg, log), nil
	case config.ProtocolStdout:
		return NewStdoutTransport(log), nil
	default:
		return nil, fmt.Errorf("unsupported transport protocol: %s", cfg.Protocol)
	}
}
