package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bioconv-go version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Bioinformatics format adapter")
	},
}
