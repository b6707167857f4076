package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
)

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a master key for sealing provider passwords",
		Long: `Generate a 256-bit master key and write it with mode 0600.

Without -o the key goes to VAULT_MASTER_KEY_PATH. An existing file is
never overwritten: losing the old key makes sealed passwords unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				path = rootOpts.cfg.MasterKeyPath
			}

			key, err := cryptox.WriteMasterKey(path)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to write master key", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote master key to %s (fingerprint %s)\n", path, cryptox.Fingerprint([]byte(key)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "key file (default VAULT_MASTER_KEY_PATH)")
	return cmd
}
