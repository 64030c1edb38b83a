package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

var (
	askJSON bool
	askText bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a legal query",
	Long: `Splits the query into separate requests, routes each to case discovery,
legal aid or drafting, and prints every answer in the order asked.

Output is text on a terminal and JSON otherwise; --json and --text override.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the response envelope as JSON")
	askCmd.Flags().BoolVar(&askText, "text", false, "print readable text")
	askCmd.MarkFlagsMutuallyExclusive("json", "text")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := loadIndex(ctx, svc); err != nil {
		return err
	}
	if svc.Index.IsEmpty() {
		cmd.PrintErrln("The case index is empty; answers will not cite documents. Run 'lexroute index' first.")
	}

	env, err := svc.Assistant.Handle(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if wantJSON(cmd.OutOrStdout(), askJSON, askText) {
		return writeJSON(cmd, env)
	}
	printEnvelope(cmd, env)
	return nil
}

// wantJSON resolves the output format. Without a flag, JSON is used
// unless out is a terminal.
func wantJSON(out io.Writer, forceJSON, forceText bool) bool {
	switch {
	case forceJSON:
		return true
	case forceText:
		return false
	}
	f, ok := out.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printEnvelope(cmd *cobra.Command, env *domain.ResponseEnvelope) {
	multi := len(env.Outcomes) > 1
	for i, o := range env.Outcomes {
		if multi {
			cmd.Printf("[%d] %s (%s)\n", i+1, o.SubQuery.Text, o.Intent.Description())
		}
		switch {
		case o.Payload != nil:
			cmd.Println(strings.TrimSpace(o.Payload.Answer))
			if docs := distinctDocuments(o.Payload.Sources); len(docs) > 0 {
				cmd.Printf("Sources: %s\n", strings.Join(docs, ", "))
			}
		case o.Failure != nil:
			cmd.Printf("Could not answer (%s): %s\n", o.Failure.Kind, o.Failure.Message)
		}
		cmd.Println()
	}
	if env.Status != domain.StatusAllSucceeded {
		cmd.Printf("Status: %s\n", env.Status)
	}
}

func distinctDocuments(hits []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(hits))
	var ids []string
	for _, h := range hits {
		if _, ok := seen[h.Chunk.DocumentID]; !ok {
			seen[h.Chunk.DocumentID] = struct{}{}
			ids = append(ids, h.Chunk.DocumentID)
		}
	}
	return ids
}
