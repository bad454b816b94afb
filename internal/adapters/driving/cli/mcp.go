package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidwright/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can call the
pipeline as tools.

Tools:
  parse_requirements  extract the requirements from RFP text
  draft_response      run all four agents and return the composed draft

By default the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead, for example for the MCP Inspector.

Examples:
  # Stdio mode (default, for desktop assistants)
  bidwright mcp serve

  # HTTP mode
  bidwright mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "bidwright": {
        "command": "/path/to/bidwright",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	stop, err := startPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Pipeline: pipelineService,
		Export:   exportService,
		Prompts:  promptSource,
	})
}
