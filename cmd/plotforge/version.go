package main

import (
	"fmt"

	"github.com/aretw0/plotforge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of plotforge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plotforge version %s\n", plotforge.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
