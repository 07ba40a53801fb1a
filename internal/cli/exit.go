package cli

import (
	"errors"
	"fmt"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/source"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitStartup = 3 // bad arguments, invalid configuration or unreadable log file
)

// UsageError reports malformed command-line arguments.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	var startupErr *source.StartupError
	switch {
	case errors.As(err, &usageErr),
		errors.As(err, &startupErr),
		errors.Is(err, config.ErrInvalid):
		return ExitStartup
	default:
		return ExitFailure
	}
}
