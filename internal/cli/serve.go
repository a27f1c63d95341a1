package cli

import (
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/infrastructure/http"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat web server",
	Long: `Start the HTTP front end:

  GET  /          chat page
  GET  /get?msg=  answer as {"result": ...} (POST form and JSON bodies work too)
  GET  /stream    answer as server-sent events
  GET  /health    {"ready": bool, "error": string}

Backend clients are built on the first question. A failed build is reported
by /health and retried on the next question.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr()
		}

		backend := newBackend()
		defer backend.Close()

		return http.NewServer(backend, addr, logger).Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default host:PORT from config)")
	rootCmd.AddCommand(serveCmd)
}
