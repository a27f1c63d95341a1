package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and sources as JSON")
	rootCmd.AddCommand(askCmd)
}

type askResult struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []askSource `json:"sources"`
}

type askSource struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	services, err := buildServices(cmd.Context())
	if err != nil {
		return err
	}
	defer services.Close()

	resp, err := services.Query.Answer(cmd.Context(), &entities.ChatRequest{Query: question})
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	out := cmd.OutOrStdout()
	if askJSON {
		result := askResult{Question: question, Answer: resp.Answer, Sources: []askSource{}}
		for _, s := range resp.Sources {
			result.Sources = append(result.Sources, askSource{Source: s.Chunk.Source, Page: s.Chunk.Page, Score: s.Score})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, s := range resp.Sources {
			fmt.Fprintf(out, "  [%d] %s p.%d (%.2f)\n", i+1, s.SourceDoc, s.Chunk.Page+1, s.Score)
		}
	}
	return nil
}
