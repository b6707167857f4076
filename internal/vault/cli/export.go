package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/domainvault/internal/vault/app"
	"github.com/aussiebroadwan/domainvault/internal/vault/export"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the renewal calendar as iCalendar",
		Long: `Write one all-day event per domain renewal, read from the local cache.

Without -o the calendar is written to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, opts *RootOptions, output string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	local, err := openLocal(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close(ctx) }()

	domains := local.Coord.Portfolio().ListDomains()
	data := export.NewEncoder(opts.cfg.ICSNamespace).Calendar(domains)

	if output == "" || output == "-" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return WrapExitError(ExitFailure, "failed to write calendar", err)
		}
		return nil
	}

	if err := writeFile(output, data); err != nil {
		return WrapExitError(ExitFailure, "failed to write calendar", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d renewals to %s\n", len(domains), output)
	return nil
}

// writeFile writes data to path. A failed close counts as a failed write.
func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// openLocal opens the local cache for a read-only command. Configuration
// problems exit with ExitUsage; anything else is a runtime failure.
func openLocal(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*app.Local, error) {
	local, err := app.OpenLocal(ctx, opts.cfg, opts.logger(cmd))
	if err != nil {
		code := ExitFailure
		var cfgErr *app.ConfigError
		if errors.As(err, &cfgErr) {
			code = ExitUsage
		}
		return nil, WrapExitError(code, "failed to open local cache", err)
	}
	return local, nil
}
