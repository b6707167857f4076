package cli

import (
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/domainvault/internal/vault/app"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vault HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if port > 0 {
				cfg.Port = port
			}

			application, err := app.New(cfg)
			if err != nil {
				return WrapExitError(ExitUsage, "failed to initialize application", err)
			}
			return application.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides PORT)")
	return cmd
}
