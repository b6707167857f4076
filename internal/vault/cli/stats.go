package cli

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			local, err := openLocal(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = local.Close(ctx) }()

			stats := derive.DashboardStats(local.Coord.Portfolio().ListDomains(), time.Now())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
