package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragserve/internal/ingest"
	"github.com/ragstack/ragserve/internal/logging"
)

// NewIngestCmd constructs the `ragserve ingest` command, which runs the
// ingestion pipeline once for a single document and exits.
func NewIngestCmd() *cobra.Command {
	var file string
	var title string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a document into the vector index",
		Long: `Chunk, tag, embed, and index a single text document.

The document is read from --file, or from stdin when --file is omitted.
The --title flag sets the source label attached to every chunk; it defaults
to the file name, or "unknown" when reading from stdin.

Required environment variables:
  EMBEDDING_ENDPOINT     Embedding service base URL (default: http://localhost:3001)
  EMBEDDING_DIMENSIONS   Embedding vector size (default: 384)
  QDRANT_HOST            Qdrant server hostname (default: localhost)
  QDRANT_PORT            Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION      Collection name (default: rag-docs)

Examples:
  ragserve ingest --file notes.txt
  ragserve ingest --file paper.txt --title "Attention Is All You Need"
  cat notes.txt | ragserve ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			var text []byte
			var err error
			if file != "" {
				text, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", file, err)
				}
				if title == "" {
					title = file
				}
			} else {
				text, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("ingest: read stdin: %w", err)
				}
			}

			emb, err := buildEmbedder()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline, err := ingest.NewPipeline(emb, store, &ingest.Config{
				ChunkSize:    getEnvInt("CHUNK_SIZE", 200),
				ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 20),
				TagTopN:      getEnvInt("TAG_TOP_N", 3),
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			docID, err := pipeline.IngestDocument(ctx, string(text), title, nil)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.String("document_id", docID))
			fmt.Println(docID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the text file to ingest (default: stdin)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Source label attached to every chunk")

	return cmd
}
