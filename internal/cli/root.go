package cli

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	cfgFile  string
	logLevel string
}

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "log2gelf [hostname gelfhost gelfport logtype logfilepath protocol secure]",
		Short: "Ship log file lines to a Graylog collector as GELF",
		Long: `log2gelf follows a growing log file, parses every appended line as
syslog, Apache or Nginx error log, and forwards it to a Graylog collector
as a GELF message over TCP/TLS (NUL framed) or HTTP(S) POST /gelf.

Configuration is read from defaults, a YAML/JSON file and LOG2GELF_*
environment variables, in that order. The seven positional arguments
override the loaded configuration, for example:

  log2gelf web-01 graylog.internal 12201 syslog /var/log/syslog tcp false

Running without arguments is a usage error (exit status 3). A hostname
equal to a command name (run, validate, version, help) selects that command;
use "log2gelf run --hostname <name>" for such hosts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErrorf("%s (see log2gelf --help)", positionalUsage)
			}
			return runShipper(cmd, opts, positionalOverrides(args))
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{msg: err.Error()}
	})

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: ./log2gelf.yaml, /etc/log2gelf/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		NewRunCmd(opts),
		NewValidateCmd(opts),
		NewVersionCmd(),
	)

	return rootCmd
}
