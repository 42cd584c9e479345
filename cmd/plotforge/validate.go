package main

import (
	"fmt"
	"os"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the graph for consistency",
	Long: `Loads the story without falling back to the built-in graph, then crawls
it from the initial node and reports missing content, dead links and
unreachable nodes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cli.Validate(cmd.Context(), cfg, os.Stdout); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Println("Graph is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
