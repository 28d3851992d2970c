package cli

import (
	"github.com/spf13/cobra"

	"github.com/aparcar/daisyway/presentation/wizard"
)

func configureCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactively build a daisyway.toml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wizard.Run(outputPath)
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "daisyway.toml", "path to write the generated configuration file")

	return cmd
}
