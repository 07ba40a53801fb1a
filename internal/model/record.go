// Package model defines the core data structures used throughout the shipper.
package model

import (
	"fmt"
	"strings"
)

// Dialect names a supported source log format.
type Dialect string

const (
	DialectSyslog Dialect = "syslog"
	DialectApache Dialect = "apache"
	DialectNginx  Dialect = "nginx"
)

// Dialects lists every supported dialect in a stable order.
var Dialects = []Dialect{DialectSyslog, DialectApache, DialectNginx}

// ParseDialect converts a configuration string into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dialects {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown log dialect %q (want syslog, apache or nginx)", s)
}

// String returns the dialect name as used in configuration and in _logtype.
func (d Dialect) String() string {
	return string(d)
}

// RawLine is a single newline-terminated segment read from the source file,
// without the terminator.
type RawLine struct {
	// Text is the line content.
	Text string

	// Path is the file the line was read from.
	Path string
}

// Record is the structured result of parsing one RawLine.
type Record struct {
	// Timestamp is in unix seconds. The source formats carry no usable year,
	// so it is always reconstructed with the current calendar year.
	Timestamp int64

	// Message is the log body.
	Message string

	// Service is the syslog program tag (e.g. "sshd[123]"). Empty for
	// dialects that do not carry one.
	Service string

	// Dialect is the format the line was parsed as.
	Dialect Dialect
}

// HasService reports whether the record carries a service tag.
func (r Record) HasService() bool {
	return r.Service != ""
}
