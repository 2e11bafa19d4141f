package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the configured slots to AI agents as MCP tools
(list_actions, get_state, dispatch, reset) and resources (sculpt://slots).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		rt, logger, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		go func() {
			if err := cli.WatchActions(sc, rt, nil); err != nil {
				logger.Error("Watching actions failed", "err", err)
			}
		}()

		srv := mcp.NewServer(rt.Manager, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			logger.Info("Starting Sculpt MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting Sculpt MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sc, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
