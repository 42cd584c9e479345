package main

import (
	"os"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the story graph as a Mermaid diagram",
	Long:  `Outputs a Mermaid flowchart (graph TD) of the story. With --overlay the session's path is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID := ""
		if overlay, _ := cmd.Flags().GetBool("overlay"); overlay {
			sessionID = app.Config.Story.Session
		}
		return cli.Graph(cmd.Context(), app, sessionID, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("overlay", false, "Highlight the visited and current nodes of the session")
}
