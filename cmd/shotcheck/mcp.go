package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
	"github.com/standardbeagle/shotcheck/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server",
	Long: `Run as an MCP (Model Context Protocol) server for AI coding assistants.

Serves the regression tool over stdio against the configured storage root.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	manager, err := snapshot.NewManager(cfg.Root, cfg.RenderOptions())
	if err != nil {
		return err
	}

	server := newMCPServer(manager)

	logger.Info("mcp server starting", zap.String("root", cfg.Root))
	return server.Run(cmd.Context(), &mcp.StdioTransport{})
}

func newMCPServer(manager *snapshot.Manager) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    appName,
			Version: appVersion,
		},
		&mcp.ServerOptions{
			HasTools: true,
			Instructions: `Visual regression server for screenshot batches.

Available tools:
- regression: compare screenshots, run a capture manifest against baselines,
  render reports, classify diff percentages and promote baselines`,
		},
	)

	tools.RegisterRegressionTools(server, tools.NewRegression(manager, cfg.Pipeline(logger), logger))
	return server
}
