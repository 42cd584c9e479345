package main

import (
	"os"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, export and remove sessions in the configured content store.`,
}

// sessionArg returns the positional session ID, or the configured one.
func sessionArg(args []string, app *cli.App) string {
	if len(args) > 0 {
		return args[0]
	}
	return app.Config.Story.Session
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ListSessions(cmd.Context(), app, os.Stdout)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the cursor and variables of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ShowSession(cmd.Context(), app, sessionArg(args, app), os.Stdout)
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Print the persisted history log of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.SessionHistory(cmd.Context(), app, sessionArg(args, app), os.Stdout)
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write the accumulated narrative of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		out := os.Stdout
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return cli.ExportSession(cmd.Context(), app, sessionArg(args, app), out)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.RemoveSessions(cmd.Context(), app, args, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionShowCmd, sessionHistoryCmd, sessionExportCmd, sessionRmCmd)
	sessionExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}
