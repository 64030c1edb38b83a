package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexroute/internal/adapters/driving/mcp"
)

var mcpServeCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes two tools, ask and search, over the case index. By default
it communicates over stdio using JSON-RPC. Use --port to serve HTTP instead.

Examples:
  # Stdio mode (default)
  lexroute serve-mcp

  # HTTP mode (for MCP Inspector, remote access)
  lexroute serve-mcp --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpServeCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if err := loadIndex(cmd.Context(), svc); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Assistant: svc.Assistant,
		Retriever: svc.Index,
		Index:     svc.Index,
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
