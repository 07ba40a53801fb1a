package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/log2gelf/internal/config"
	"github.com/GabrielNunesIT/log2gelf/internal/source"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [hostname gelfhost gelfport logtype logfilepath protocol secure]",
		Short: "Validate the configuration and check the log file is readable",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var override overrideFunc
			if len(args) > 0 {
				override = positionalOverrides(args)
			}

			cfg, err := loadConfig(cmd, opts, override)
			if err != nil {
				return err
			}

			if err := source.Check(cfg.Source.Path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Hostname:  %s\n", cfg.Hostname)
			fmt.Fprintf(out, "  Dialect:   %s\n", cfg.Dialect)
			fmt.Fprintf(out, "  Log file:  %s\n", cfg.Source.Path)
			if cfg.Transport.Protocol == config.ProtocolStdout {
				fmt.Fprintf(out, "  Transport: stdout\n")
			} else {
				fmt.Fprintf(out, "  Transport: %s://%s (tls=%t)\n", cfg.Transport.Protocol, cfg.Transport.Address(), cfg.Transport.TLS)
			}
			return nil
		},
	}
}
