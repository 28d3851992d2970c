// Package cli wires the daisyway binary's subcommands on top of cobra.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	root := &cobra.Command{
		Use:     "daisyway",
		Short:   "QKD-backed WireGuard preshared key rekeying daemon",
		Version: Version,
		Long: `daisyway negotiates a fresh WireGuard pre-shared key with a peer on
every rekey round, deriving it from a quantum key distribution device
reachable over the ETSI GS QKD 014 REST API.`,
	}

	root.AddCommand(exchangeCmd())
	root.AddCommand(configureCmd())

	return root.Execute()
}
