package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/pipeline"
)

// overrideFunc applies command-line values on top of the loaded configuration.
type overrideFunc func(cfg *config.Config) error

// NewRunCmd creates the run command.
func NewRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Follow the log file and ship it to the collector",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("run takes no arguments, got %q", args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShipper(cmd, opts, flagOverrides(cmd))
		},
	}

	f := cmd.Flags()
	f.String("hostname", "", "host name reported in every GELF message")
	f.String("dialect", "", "log dialect (syslog, apache, nginx)")
	f.String("file", "", "log file to follow")
	f.Bool("poll", false, "poll the log file instead of using inotify")
	f.Bool("strict", false, "stop on the first line that does not match the dialect")
	f.Bool("nginx-line-date", false, "use the month/day written in nginx lines instead of today's date")

	f.String("protocol", "", "transport protocol (tcp, http, stdout)")
	f.String("host", "", "collector host")
	f.Int("port", 0, "collector port")
	f.Bool("tls", false, "use TLS (tcp) or HTTPS (http)")
	f.Bool("insecure-skip-verify", true, "accept any certificate presented by the collector")
	f.Bool("queue-while-connecting", false, "keep every message sent while the TCP connection is being opened")
	f.Duration("dial-timeout", 0, "TCP connect timeout (0 = none)")

	return cmd
}

// flagOverrides copies every flag the user actually set into the configuration.
func flagOverrides(cmd *cobra.Command) overrideFunc {
	return func(cfg *config.Config) error {
		f := cmd.Flags()

		if f.Changed("hostname") {
			cfg.Hostname, _ = f.GetString("hostname")
		}
		if f.Changed("dialect") {
			cfg.Dialect, _ = f.GetString("dialect")
		}
		if f.Changed("file") {
			cfg.Source.Path, _ = f.GetString("file")
		}
		if f.Changed("poll") {
			cfg.Source.Poll, _ = f.GetBool("poll")
		}
		if f.Changed("strict") {
			cfg.Parser.Strict, _ = f.GetBool("strict")
		}
		if f.Changed("nginx-line-date") {
			cfg.Parser.NginxLineDate, _ = f.GetBool("nginx-line-date")
		}
		if f.Changed("protocol") {
			cfg.Transport.Protocol, _ = f.GetString("protocol")
		}
		if f.Changed("host") {
			cfg.Transport.Host, _ = f.GetString("host")
		}
		if f.Changed("port") {
			cfg.Transport.Port, _ = f.GetInt("port")
		}
		if f.Changed("tls") {
			cfg.Transport.TLS, _ = f.GetBool("tls")
		}
		if f.Changed("insecure-skip-verify") {
			cfg.Transport.InsecureSkipVerify, _ = f.GetBool("insecure-skip-verify")
		}
		if f.Changed("queue-while-connecting") {
			cfg.Transport.QueueWhileConnecting, _ = f.GetBool("queue-while-connecting")
		}
		if f.Changed("dial-timeout") {
			cfg.Transport.DialTimeout, _ = f.GetDuration("dial-timeout")
		}
		return nil
	}
}

const positionalUsage = "usage: log2gelf hostname gelfhost gelfport logtype logfilepath protocol secure"

// positionalOverrides applies the classic
// "hostname gelfhost gelfport logtype logfilepath protocol secure" form.
func positionalOverrides(args []string) overrideFunc {
	return func(cfg *config.Config) error {
		if len(args) != 7 {
			return usageErrorf("%s (got %d arguments)", positionalUsage, len(args))
		}

		port, err := strconv.Atoi(args[2])
		if err != nil {
			return usageErrorf("gelfport must be a number, got %q", args[2])
		}

		var secure bool
		switch args[6] {
		case "true":
			secure = true
		case "false":
		default:
			return usageErrorf("secure must be true or false, got %q", args[6])
		}

		cfg.Hostname = args[0]
		cfg.Transport.Host = args[1]
		cfg.Transport.Port = port
		cfg.Dialect = args[3]
		cfg.Source.Path = args[4]
		cfg.Transport.Protocol = args[5]
		cfg.Transport.TLS = secure
		return nil
	}
}

// loadConfig loads the layered configuration, applies command-line
// overrides and validates the result.
func loadConfig(cmd *cobra.Command, opts *rootOptions, override overrideFunc) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if override != nil {
		if err := override(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runShipper(cmd *cobra.Command, opts *rootOptions, override overrideFunc) error {
	cfg, err := loadConfig(cmd, opts, override)
	if err != nil {
		return err
	}

	log, closeLog := SetupLogging(cfg.LogLevel, cfg.LogFile)
	defer closeLog()

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("cannot start")
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go handleSignals(ctx, cancel, sigChan, log)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("pipeline error")
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info().Msg("log2gelf stopped")
	return nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, log zerolog.Logger) {
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	case <-ctx.Done():
	}
}
