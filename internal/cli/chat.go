package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/infrastructure/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		services, err := buildServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		status := fmt.Sprintf("Model %s, embeddings %s. Esc to quit.", services.LLM.ModelName(), services.Embedder.ModelName())
		return tui.Run(cmd.Context(), services.Query, status)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
