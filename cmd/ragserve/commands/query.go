package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragserve/internal/generator"
	"github.com/ragstack/ragserve/internal/logging"
	"github.com/ragstack/ragserve/internal/rag"
)

// NewQueryCmd constructs the `ragserve query` command, which answers a single
// question against the indexed documents and exits.
func NewQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question grounded in the indexed documents",
		Long: `Embed the question, retrieve the closest chunks above the relevance
threshold, and generate an answer grounded in them.

An empty retrieval is not an error: generation proceeds with an empty
context block and the model answers from the prompt alone.

Examples:
  ragserve query "What is the attention mechanism?"
  ragserve query --top-k 5 "How does chunk overlap affect retrieval?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := strings.Join(args, " ")

			emb, err := buildEmbedder()
			if err != nil {
				return fmt.Errorf("query: failed to initialise embedder: %w", err)
			}

			gen, err := generator.New(&generator.Config{
				BaseURL: getEnvOrDefault("GENERATION_ENDPOINT", "http://localhost:3000"),
				Timeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
			})
			if err != nil {
				return fmt.Errorf("query: failed to initialise generator: %w", err)
			}

			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer store.Close()

			threshold := getEnvFloat32("RETRIEVAL_SCORE_THRESHOLD", 0.5)
			retriever, err := rag.NewRetriever(emb, store, &rag.RetrieverConfig{
				DefaultTopK:    getEnvInt("RETRIEVAL_TOP_K", 3),
				ScoreThreshold: &threshold,
			})
			if err != nil {
				return fmt.Errorf("query: failed to create retriever: %w", err)
			}

			composer, err := rag.NewComposer(gen, getEnvInt("GENERATION_MAX_TOKENS", 128))
			if err != nil {
				return fmt.Errorf("query: failed to create composer: %w", err)
			}

			hits, err := retriever.Retrieve(ctx, question, topK)
			if err != nil {
				return fmt.Errorf("query: retrieval failed: %w", err)
			}
			if len(hits) == 0 {
				log.Info("no context above threshold, answering from the prompt alone")
			} else {
				log.Info("context retrieved", slog.Int("contexts", len(hits)))
			}

			answer, err := composer.Answer(ctx, question, hits)
			if err != nil {
				return fmt.Errorf("query: generation failed: %w", err)
			}

			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of context chunks to retrieve (default: RETRIEVAL_TOP_K or 3)")

	return cmd
}
