// Package source follows a growing log file and yields the lines appended to it.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// Source produces raw lines in file-append order.
//
// Run blocks until ctx is cancelled and closes the Lines channel before it
// returns. Read failures after startup are reported on Errors and never stop
// Run.
type Source interface {
	Name() string
	Run(ctx context.Context) error
	Lines() <-chan model.RawLine
	Errors() <-chan error
}

// StartupError reports a log file that cannot be followed at all.
type StartupError struct {
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("log file %s is not readable: %v", e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ReadError reports a failure while following an already opened file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ErrRemoved is reported when the followed file is removed or renamed away.
var ErrRemoved = errors.New("file removed")

// Check verifies that path names a readable regular file.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &StartupError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &StartupError{Path: path, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return &StartupError{Path: path, Err: err}
	}
	return f.Close()
}

// New checks the configured file and returns the matching follower.
func New(cfg config.SourceConfig, bufferSize int, log zerolog.Logger) (Source, error) {
	if err := Check(cfg.Path); err != nil {
		return nil, err
	}
	if cfg.Poll {
		return NewPollSource(cfg.Path, bufferSize, log), nil
	}
	return NewNotifySource(cfg.Path, bufferSize, log), nil
}

// trimEOL strips the line terminator, accepting both \n and \r\n.
func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// emitter is the channel plumbing shared by both followers.
type emitter struct {
	path   string
	lines  chan model.RawLine
	errs   chan error
	ready  chan struct{}
	logger zerolog.Logger
}

func newEmitter(path string, bufferSize int, log zerolog.Logger, component string) emitter {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return emitter{
		path:   path,
		lines:  make(chan model.RawLine, bufferSize),
		errs:   make(chan error, 16),
		ready:  make(chan struct{}),
		logger: log.With().Str("component", component).Str("path", path).Logger(),
	}
}

func (e *emitter) Lines() <-chan model.RawLine { return e.lines }

func (e *emitter) Errors() <-chan error { return e.errs }

// emit hands one line downstream. It returns false once ctx is done.
func (e *emitter) emit(ctx context.Context, text string) bool {
	select {
	case e.lines <- model.RawLine{Text: text, Path: e.path}:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail reports a read error without blocking the follower.
func (e *emitter) fail(err error) {
	rerr := &ReadError{Path: e.path, Err: err}
	select {
	case e.errs <- rerr:
	default:
		e.logger.Warn().Err(rerr).Msg("error channel full, dropping read error")
	}
}
