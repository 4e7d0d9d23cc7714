package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gamecfg/internal/data/stamp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the config_version stamped into artifacts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), stamp.Version)
	},
}
