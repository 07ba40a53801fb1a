// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"

	"github.com/GabrielNunesIT/log2gelf/internal/model"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Transport protocols.
const (
	ProtocolTCP    = "tcp"
	ProtocolHTTP   = "http"
	ProtocolStdout = "stdout"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "LOG2GELF_"

// Config is the root configuration structure for the shipper.
type Config struct {
	LogLevel  string          `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	LogFile   LogFileConfig   `koanf:"logfile"`
	Hostname  string          `koanf:"hostname"`
	Dialect   string          `koanf:"dialect"`
	Source    SourceConfig    `koanf:"source"`
	Parser    ParserConfig    `koanf:"parser"`
	Transport TransportConfig `koanf:"transport"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
}

// LogFileConfig configures an optional rotating copy of the shipper's own logs.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// SourceConfig configures the followed log file.
type SourceConfig struct {
	Path string `koanf:"path"`
	Poll bool   `koanf:"poll"` // stat polling instead of inotify
}

// ParserConfig configures dialect parsing.
type ParserConfig struct {
	// Strict makes a line that does not match its dialect stop the shipper.
	Strict bool `koanf:"strict"`

	// NginxLineDate uses the month/day found in nginx lines instead of today's date.
	NginxLineDate bool `koanf:"nginxlinedate" yaml:"nginx_line_date" json:"nginx_line_date"`
}

// TransportConfig configures delivery to the GELF collector.
type TransportConfig struct {
	Protocol string `koanf:"protocol"` // "tcp", "http" or "stdout"
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	TLS      bool   `koanf:"tls"`

	// InsecureSkipVerify accepts any certificate the collector presents.
	InsecureSkipVerify bool `koanf:"insecureskipverify" yaml:"insecure_skip_verify" json:"insecure_skip_verify"`

	// QueueWhileConnecting keeps every message sent during a connect attempt
	// instead of only the most recent one. TCP only.
	QueueWhileConnecting bool `koanf:"queuewhileconnecting" yaml:"queue_while_connecting" json:"queue_while_connecting"`

	// DialTimeout bounds a TCP connect attempt. Zero means no limit.
	DialTimeout time.Duration `koanf:"dialtimeout" yaml:"dial_timeout" json:"dial_timeout"`
}

// PipelineConfig controls the driver.
type PipelineConfig struct {
	BufferSize      int           `koanf:"buffersize" yaml:"buffer_size" json:"buffer_size"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Address returns the collector address in host:port form, bracketing
// IPv6 literals.
func (t TransportConfig) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// defaults returns the default configuration values.
func defaults() Config {
	hostname, _ := os.Hostname()

	return Config{
		LogLevel: "info",
		LogFile: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Hostname: hostname,
		Dialect:  string(model.DialectSyslog),
		Transport: TransportConfig{
			Protocol:           ProtocolTCP,
			Port:               12201,
			InsecureSkipVerify: true,
		},
		Pipeline: PipelineConfig{
			BufferSize:      1000,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	cfg := defaults()
	return &cfg
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./log2gelf.yaml", "/etc/log2gelf/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration describes a runnable shipper.
// All problems are reported together; each wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if strings.TrimSpace(c.Hostname) == "" {
		invalid("hostname must not be empty")
	}
	if _, err := model.ParseDialect(c.Dialect); err != nil {
		invalid("%v", err)
	}
	if c.Source.Path == "" {
		invalid("source.path must be set")
	}

	switch c.Transport.Protocol {
	case ProtocolTCP, ProtocolHTTP:
		if c.Transport.Host == "" {
			invalid("transport.host must be set for protocol %s", c.Transport.Protocol)
		}
		if c.Transport.Port < 1 || c.Transport.Port > 65535 {
			invalid("transport.port %d out of range", c.Transport.Port)
		}
	case ProtocolStdout:
	default:
		invalid("transport.protocol must be tcp, http or stdout, got %q", c.Transport.Protocol)
	}

	if c.Pipeline.BufferSize < 0 {
		invalid("pipeline.buffersize must not be negative")
	}

	return errors.Join(errs...)
}

// DialectValue returns the validated dialect. Call Validate first.
func (c *Config) DialectValue() model.Dialect {
	d, _ := model.ParseDialect(c.Dialect)
	return d
}
