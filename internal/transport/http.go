package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
)

// GELFPath is the collector endpoint every HTTP message is posted to.
const GELFPath = "/gelf"

// gelfContentType is what the collector has always been sent; the body is
// raw JSON regardless.
const gelfContentType = "application/x-www-form-urlencoded"

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client for testing.
func WithHTTPClient(client HTTPDoer) HTTPOption {
	return func(h *HTTPTransport) {
		h.client = client
	}
}

// HTTPTransport posts each GELF document in its own request.
type HTTPTransport struct {
	cfg    config.TransportConfig
	client HTTPDoer
	url    string
	logger zerolog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewHTTPTransport creates a request-per-message transport for cfg.
func NewHTTPTransport(cfg config.TransportConfig, log zerolog.Logger, opts ...HTTPOption) *HTTPTransport {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}

	h := &HTTPTransport{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit operator choice
				},
			},
		},
		url:    scheme + "://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + GELFPath,
		logger: log.With().Str("component", "HTTPTransport").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the transport identifier.
func (h *HTTPTransport) Name() string {
	if h.cfg.TLS {
		return "https"
	}
	return "http"
}

// URL returns the collector endpoint.
func (h *HTTPTransport) URL() string {
	return h.url
}

// Start is a no-op; requests are independent.
func (h *HTTPTransport) Start(ctx context.Context) error {
	h.logger.Debug().
		Str("url", h.url).
		Bool("insecure_skip_verify", h.cfg.InsecureSkipVerify).
		Msg("http transport started")
	return nil
}

// Send posts msg in the background. Failures are logged and the message is lost.
func (h *HTTPTransport) Send(ctx context.Context, msg []byte) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	h.wg.Add(1)
	h.mu.Unlock()

	// In-flight requests outlive the caller's cancellation; Stop bounds them.
	reqCtx := context.WithoutCancel(ctx)
	go func() {
		defer h.wg.Done()
		if err := h.Post(reqCtx, msg); err != nil {
			h.logger.Error().Err(err).Str("url", h.url).Msg("gelf request failed")
		}
	}()
	return nil
}

// Post performs one synchronous request for msg.
func (h *HTTPTransport) Post(ctx context.Context, msg []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(msg))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", gelfContentType)
	req.ContentLength = int64(len(msg))

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gelf post failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (h *HTTPTransport) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Debug().Msg("http transport stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
