package main

import (
	"context"
	"fmt"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes story sessions to MCP clients as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := openApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		switch transport {
		case "stdio":
			return cli.ServeMCP(sigCtx, app, "")
		case "sse":
			return cli.ServeMCP(sigCtx, app, fmt.Sprintf(":%d", port))
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
