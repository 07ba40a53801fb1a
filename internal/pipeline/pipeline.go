// Package pipeline wires the line source, parser, GELF encoder and transport
// into a single event loop.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/gelf"
	"github.com/GabrielNunesIT/log2gelf/internal/model"
	"github.com/GabrielNunesIT/log2gelf/internal/parser"
	"github.com/GabrielNunesIT/log2gelf/internal/source"
	"github.com/GabrielNunesIT/log2gelf/internal/transport"
)

// Notifier receives service manager state changes such as READY=1.
type Notifier func(state string)

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Lines       uint64 // raw lines received from the source
	ParseErrors uint64
	Sent        uint64 // messages accepted by the transport
	SendErrors  uint64
}

// Option overrides a component the pipeline would otherwise build from config.
type Option func(*Pipeline)

// WithSource injects the line source.
func WithSource(src source.Source) Option {
	return func(p *Pipeline) { p.source = src }
}

// WithParser injects the dialect parser.
func WithParser(prs parser.Parser) Option {
	return func(p *Pipeline) { p.parser = prs }
}

// WithTransport injects the transport.
func WithTransport(tr transport.Transport) Option {
	return func(p *Pipeline) { p.transport = tr }
}

// WithNotifier replaces the systemd notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notify = n }
}

// Pipeline moves lines from the source to the collector.
type Pipeline struct {
	cfg     *config.Config
	logger  zerolog.Logger
	dialect model.Dialect

	source    source.Source
	parser    parser.Parser
	transport transport.Transport
	notify    Notifier

	lines       atomic.Uint64
	parseErrors atomic.Uint64
	sent        atomic.Uint64
	sendErrors  atomic.Uint64
}

// New builds a pipeline from a validated configuration. The log file is
// checked before anything else is built, so an unreadable file yields a
// *source.StartupError and no other component.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:     cfg,
		logger:  log.With().Str("component", "Pipeline").Logger(),
		dialect: cfg.DialectValue(),
		notify:  sdNotify,
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.source == nil {
		p.source, err = source.New(cfg.Source, cfg.Pipeline.BufferSize, log)
		if err != nil {
			return nil, err
		}
	}

	if p.parser == nil {
		p.parser, err = parser.New(p.dialect, parser.WithNginxLineDate(cfg.Parser.NginxLineDate))
		if err != nil {
			return nil, fmt.Errorf("building parser: %w", err)
		}
	}

	if p.transport == nil {
		p.transport, err = transport.New(cfg.Transport, log)
		if err != nil {
			return nil, fmt.Errorf("building transport: %w", err)
		}
	}

	return p, nil
}

// Run starts the transport and processes lines until ctx is cancelled, the
// source fails to start, or a line fails to parse in strict mode.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.transport.Start(ctx); err != nil {
		return fmt.Errorf("starting transport %s: %w", p.transport.Name(), err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.source.Run(gCtx)
	})

	g.Go(func() error {
		return p.loop(gCtx)
	})

	p.logger.Info().
		Str("hostname", p.cfg.Hostname).
		Str("dialect", p.dialect.String()).
		Str("source", p.source.Name()).
		Str("transport", p.transport.Name()).
		Msg("pipeline started")
	p.notify(daemon.SdNotifyReady)

	err := g.Wait()

	p.notify(daemon.SdNotifyStopping)
	p.shutdown()

	return err
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Lines:       p.lines.Load(),
		ParseErrors: p.parseErrors.Load(),
		Sent:        p.sent.Load(),
		SendErrors:  p.sendErrors.Load(),
	}
}

// loop is the single consumer of source events.
func (p *Pipeline) loop(ctx context.Context) error {
	lines := p.source.Lines()
	errs := p.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := p.handle(ctx, line); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.logger.Warn().Err(err).Msg("source read error")
		}
	}
}

// handle parses, encodes and sends one line. Only a strict-mode parse
// failure is returned.
func (p *Pipeline) handle(ctx context.Context, line model.RawLine) error {
	p.lines.Add(1)

	if strings.TrimSpace(line.Text) == "" {
		return nil
	}

	rec, err := p.parser.Parse(line.Text)
	if err != nil {
		p.parseErrors.Add(1)
		if p.cfg.Parser.Strict {
			return err
		}
		p.logger.Warn().Err(err).Msg("skipping unparseable line")
		return nil
	}

	payload, err := gelf.Encode(rec, p.cfg.Hostname, p.dialect).Marshal()
	if err != nil {
		p.logger.Error().Err(err).Msg("encoding gelf message")
		return nil
	}

	if err := p.transport.Send(ctx, payload); err != nil {
		p.sendErrors.Add(1)
		p.logger.Error().Err(err).Str("transport", p.transport.Name()).Msg("send failed")
		return nil
	}

	p.sent.Add(1)
	return nil
}

// shutdown stops the transport and reports the counters.
func (p *Pipeline) shutdown() {
	timeout := p.cfg.Pipeline.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.transport.Stop(ctx); err != nil {
		p.logger.Warn().Err(err).Str("transport", p.transport.Name()).Msg("transport stop error")
	}

	s := p.Stats()
	p.logger.Info().
		Uint64("lines", s.Lines).
		Uint64("parse_errors", s.ParseErrors).
		Uint64("sent", s.Sent).
		Uint64("send_errors", s.SendErrors).
		Msg("pipeline stopped")
}

func sdNotify(state string) {
	// A false return just means no NOTIFY_SOCKET is set.
	_, _ = daemon.SdNotify(false, state)
}
