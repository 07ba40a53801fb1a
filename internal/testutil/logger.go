package testutil

import (
	"github.com/rs/zerolog"
)

// NewTestLogger creates a logger that discards output, suitable for tests.
func NewTestLogger() zerolog.Logger {
	return zerolog.Nop()
}
