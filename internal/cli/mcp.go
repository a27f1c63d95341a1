package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/infrastructure/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server with two tools:

  ask_medical_question  answer a question from the indexed reference
  search_passages       return the closest passages without generating

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend := newBackend()
		defer backend.Close()

		server, err := mcp.NewServer(backend)
		if err != nil {
			return err
		}

		if mcpPort > 0 {
			addr := fmt.Sprintf(":%d", mcpPort)
			logger.Info("mcp server listening", slog.String("addr", addr))
			return server.RunHTTP(cmd.Context(), addr)
		}
		return server.Run(cmd.Context())
	},
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}
