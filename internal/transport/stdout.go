package transport

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// StdoutTransport writes each GELF document on its own line. Used for dry runs.
type StdoutTransport struct {
	writer io.Writer
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewStdoutTransport creates a transport printing to standard output.
func NewStdoutTransport(log zerolog.Logger) *StdoutTransport {
	return NewStdoutTransportWithWriter(os.Stdout, log)
}

// NewStdoutTransportWithWriter creates a stdout transport with a custom writer (for testing).
func NewStdoutTransportWithWriter(w io.Writer, log zerolog.Logger) *StdoutTransport {
	return &StdoutTransport{
		writer: w,
		logger: log.With().Str("component", "StdoutTransport").Logger(),
	}
}

// Name returns the transport identifier.
func (s *StdoutTransport) Name() string {
	return "stdout"
}

// Start is a no-op for stdout.
func (s *StdoutTransport) Start(ctx context.Context) error {
	s.logger.Debug().Msg("stdout transport started")
	return nil
}

// Stop is a no-op for stdout.
func (s *StdoutTransport) Stop(ctx context.Context) error {
	s.logger.Debug().Msg("stdout transport stopped")
	return nil
}

// Send writes msg followed by a newline.
func (s *StdoutTransport) Send(ctx context.Context, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := make([]byte, 0, len(msg)+1)
	line = append(line, msg...)
	line = append(line, '\n')

	_, err := s.writer.Write(line)
	return err
}
