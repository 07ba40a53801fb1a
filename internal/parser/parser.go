// Package parser turns raw log lines into structured records, one parser per dialect.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// ErrNoMatch is wrapped by a ParseError when the line does not have the
// shape its dialect expects.
var ErrNoMatch = errors.New("line does not match dialect")

// ParseError reports a line that could not be turned into a Record.
type ParseError struct {
	Dialect model.Dialect
	Reason  string
	Line    string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s line %q: %s", e.Dialect, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser converts one raw line of a given dialect into a Record.
// Implementations are stateless apart from their clock and safe for concurrent use.
type Parser interface {
	Parse(line string) (model.Record, error)

	// Dialect returns the format this parser accepts.
	Dialect() model.Dialect
}

// Option configures a parser.
type Option func(*options)

type options struct {
	now           func() time.Time
	loc           *time.Location
	nginxLineDate bool
}

// WithClock sets the source of "now" used for year and date reconstruction.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLocation sets the time zone the line timestamps are interpreted in.
// Defaults to the local zone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.loc = loc
	}
}

// WithNginxLineDate makes the nginx parser use the month and day written in
// the line instead of today's date.
func WithNginxLineDate(enabled bool) Option {
	return func(o *options) {
		o.nginxLineDate = enabled
	}
}

// New returns the parser for the given dialect.
func New(dialect model.Dialect, opts ...Option) (Parser, error) {
	o := options{
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch dialect {
	case model.DialectSyslog:
		return &SyslogParser{opts: o}, nil
	case model.DialectApache:
		return &ApacheParser{opts: o}, nil
	case model.DialectNginx:
		return &NginxParser{opts: o}, nil
	default:
		return nil, fmt.Errorf("no parser for dialect %q", dialect)
	}
}

// stampLayout parses "Jan 5 10:22:31 2026" and "Jan 05 10:22:31 2026".
const stampLayout = "Jan 2 15:04:05 2006"

// stampWithCurrentYear parses a "Mon DD HH:MM:SS" fragment, which carries no
// year, as a date in the current calendar year.
func (o options) stampWithCurrentYear(fragment string) (time.Time, error) {
	year := o.now().In(o.loc).Year()
	value := strings.Join(strings.Fields(fragment), " ") + fmt.Sprintf(" %d", year)
	return time.ParseInLocation(stampLayout, value, o.loc)
}
