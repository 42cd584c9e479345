package main

import (
	"context"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves story sessions as a JSON API, with Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := openApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		return cli.Serve(sigCtx, app, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
