package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// snippetChars bounds the passage preview in table output.
const snippetChars = 160

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the case index",
	Long: `Returns the indexed passages most similar to the query, without routing
or generating an answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := loadIndex(ctx, svc); err != nil {
		return err
	}

	results, err := svc.Index.Query(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if results == nil {
			results = []domain.ScoredChunk{}
		}
		return writeJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		// Format: [N] document#position (score)
		cmd.Printf("  [%d] %s#%d (%.2f)\n", i+1, r.Chunk.DocumentID, r.Chunk.Position, r.Score)
		if snippet := snippet(r.Chunk.Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetChars {
		return text
	}
	return string(runes[:snippetChars]) + "..."
}
