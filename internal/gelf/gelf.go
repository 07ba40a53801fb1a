// Package gelf builds Graylog Extended Log Format documents from parsed records.
package gelf

import (
	"encoding/json"

	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// Message is a GELF document. Field order is fixed by the struct, so the
// same message always serializes to the same bytes.
type Message struct {
	Host         string `json:"host"`
	ShortMessage string `json:"short_message"`
	Timestamp    int64  `json:"timestamp"`
	Service      string `json:"_service,omitempty"`
	LogType      string `json:"_logtype,omitempty"`
}

// Encode maps a record and the static shipper metadata to a GELF message.
// _service is only set for syslog records that carried a service tag.
func Encode(rec model.Record, hostname string, logType model.Dialect) Message {
	msg := Message{
		Host:         hostname,
		ShortMessage: rec.Message,
		Timestamp:    rec.Timestamp,
		LogType:      logType.String(),
	}

	if rec.Dialect == model.DialectSyslog && rec.HasService() {
		msg.Service = rec.Service
	}

	return msg
}

// Marshal returns the JSON encoding of the message. The output never
// contains a raw NUL byte, since JSON escapes control characters.
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
