// Package cli is the vault command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/domainvault/internal/vault/app"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

// RootOptions holds global flags for all commands. Everything else is read
// from the environment.
type RootOptions struct {
	CacheDriver string
	CacheFile   string
	LogLevel    string

	cfg app.Config
}

var validCacheDrivers = []string{"sqlite", "redis", "memory"}

// NewRootCommand creates the root command for the vault CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Domain portfolio vault",
		Long: `Tracks registered domains and their providers in a local cache,
optionally mirrored to a remote store once a user signs in.

Configuration comes from VAULT_* environment variables; the flags below
override the most common ones.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.CacheDriver, "cache-driver", "", "local cache driver (sqlite|redis|memory)")
	cmd.PersistentFlags().StringVar(&opts.CacheFile, "cache-file", "", "SQLite cache file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewKeygenCommand(opts))

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	o.cfg = app.LoadConfig()
	if o.CacheDriver != "" {
		if !slices.Contains(validCacheDrivers, o.CacheDriver) {
			return NewExitError(ExitUsage, fmt.Sprintf("invalid cache driver %q: must be one of %v", o.CacheDriver, validCacheDrivers))
		}
		o.cfg.CacheDriver = o.CacheDriver
	}
	if o.CacheFile != "" {
		o.cfg.CacheFile = o.CacheFile
	}
	if o.LogLevel != "" {
		o.cfg.LogLevel = o.LogLevel
	}
	return nil
}

// logger writes to stderr so command output stays pipeable.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "domainvault-cli",
		Version: app.BuildVersion,
		Env:     o.cfg.Env,
		Level:   o.cfg.LogLevel,
		Format:  "text",
		Output:  cmd.ErrOrStderr(),
	})
}
