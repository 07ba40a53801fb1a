package parser

import (
	"regexp"
	"time"

	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// bracketPattern matches "[Dow Mon DD HH:MM:SS.ffffff YYYY] message".
// Group 1 is "Mon DD HH:MM:SS", group 2 is the message.
var bracketPattern = regexp.MustCompile(
	`\[[A-Za-z]{3} ([A-Za-z]{3} [0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2})\.[0-9]{6} [0-9]{4}\] (.*)`)

const bracketReason = "expected \"[Dow Mon DD HH:MM:SS.ffffff YYYY] message\""

// ApacheParser parses Apache error log lines.
type ApacheParser struct {
	opts options
}

// Dialect returns the apache dialect.
func (p *ApacheParser) Dialect() model.Dialect {
	return model.DialectApache
}

// Parse extracts timestamp and message. The year written in the line is
// ignored in favor of the current one.
func (p *ApacheParser) Parse(line string) (model.Record, error) {
	m := bracketPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Record{}, noMatch(model.DialectApache, line)
	}

	ts, err := p.opts.stampWithCurrentYear(m[1])
	if err != nil {
		return model.Record{}, badStamp(model.DialectApache, line, m[1], err)
	}

	return model.Record{
		Timestamp: ts.Unix(),
		Message:   m[2],
		Dialect:   model.DialectApache,
	}, nil
}

// NginxParser parses nginx error log lines written in the bracketed layout.
type NginxParser struct {
	opts options
}

// Dialect returns the nginx dialect.
func (p *NginxParser) Dialect() model.Dialect {
	return model.DialectNginx
}

// Parse extracts timestamp and message. Unless WithNginxLineDate is set,
// only the time of day is taken from the line and the date is today's.
func (p *NginxParser) Parse(line string) (model.Record, error) {
	m := bracketPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Record{}, noMatch(model.DialectNginx, line)
	}

	stamp, err := p.opts.stampWithCurrentYear(m[1])
	if err != nil {
		return model.Record{}, badStamp(model.DialectNginx, line, m[1], err)
	}

	if !p.opts.nginxLineDate {
		today := p.opts.now().In(p.opts.loc)
		stamp = time.Date(today.Year(), today.Month(), today.Day(),
			stamp.Hour(), stamp.Minute(), stamp.Second(), 0, p.opts.loc)
	}

	return model.Record{
		Timestamp: stamp.Unix(),
		Message:   m[2],
		Dialect:   model.DialectNginx,
	}, nil
}

func noMatch(d model.Dialect, line string) error {
	return &ParseError{Dialect: d, Reason: bracketReason, Line: line, Err: ErrNoMatch}
}

func badStamp(d model.Dialect, line, fragment string, err error) error {
	return &ParseError{Dialect: d, Reason: "invalid timestamp " + fragment, Line: line, Err: err}
}
