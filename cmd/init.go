package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnolang/dfq/internal/config"
)

// initCmd: dfq init
func newInitCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Write(ro.cfgFile, config.Default()); err != nil {
				return fmt.Errorf("error initializing config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", ro.cfgFile)
			return nil
		},
	}
}
