package commands

import "github.com/spf13/cobra"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "model-validator",
		Short:         "Prove that a trained model is servable before promoting it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newValidateCmd(),
	)
	return rootCmd
}
