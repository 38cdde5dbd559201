// Package cli implements the artic command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/Sternrassler/artic-catalog-client/internal/config"
	"github.com/Sternrassler/artic-catalog-client/pkg/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the artic CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "artic",
		Short: "Browse the Art Institute of Chicago collection",
		Long: `Browse, select and export artworks from the Art Institute of Chicago API.

Selections are kept per page and survive page navigation. Responses are
cached in Redis and requests share a per-minute budget when REDIS_URL is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
				if err := cfg.Validate(); err != nil {
					return WrapExitError(ExitCommandError, "invalid flags", err)
				}
			}
			opts.Config = cfg

			lc := cfg.LoggingConfig(false)
			lc.Output = cmd.ErrOrStderr()
			logging.Setup(lc)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/artic/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewBrowseCommand(opts))
	cmd.AddCommand(NewPageCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewProxyCommand(opts))

	return cmd
}
