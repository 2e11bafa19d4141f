package main

import (
	"fmt"

	"github.com/aretw0/sculpt"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sculpt",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sculpt version %s\n", sculpt.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
