package parser

import (
	"regexp"

	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// syslogPattern matches "<Mon> <DD> <HH:MM:SS> <host> <service>: <message>".
// The day may be space padded ("Jan  5") or zero padded ("Jan 05").
var syslogPattern = regexp.MustCompile(
	`([A-Za-z]{3} +[0-9]{1,2} [0-9]{2}:[0-9]{2}:[0-9]{2}) [A-Za-z0-9._-]* ([A-Za-z0-9_./\[\]-]*): (.*)`)

// SyslogParser parses traditional BSD syslog file lines.
type SyslogParser struct {
	opts options
}

// Dialect returns the syslog dialect.
func (p *SyslogParser) Dialect() model.Dialect {
	return model.DialectSyslog
}

// Parse extracts timestamp, service tag and message from a syslog line.
func (p *SyslogParser) Parse(line string) (model.Record, error) {
	m := syslogPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Record{}, &ParseError{
			Dialect: model.DialectSyslog,
			Reason:  "expected \"Mon DD HH:MM:SS host service: message\"",
			Line:    line,
			Err:     ErrNoMatch,
		}
	}

	ts, err := p.opts.stampWithCurrentYear(m[1])
	if err != nil {
		return model.Record{}, &ParseError{
			Dialect: model.DialectSyslog,
			Reason:  "invalid timestamp " + m[1],
			Line:    line,
			Err:     err,
		}
	}

	return model.Record{
		Timestamp: ts.Unix(),
		Message:   m[3],
		Service:   m[2],
		Dialect:   model.DialectSyslog,
	}, nil
}
