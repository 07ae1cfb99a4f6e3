package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragserve/internal/docstore"
	"github.com/ragstack/ragserve/internal/generator"
	"github.com/ragstack/ragserve/internal/ingest"
	"github.com/ragstack/ragserve/internal/logging"
	"github.com/ragstack/ragserve/internal/rag"
	"github.com/ragstack/ragserve/internal/requestlog"
	"github.com/ragstack/ragserve/internal/server"
)

// NewServeCmd constructs the `ragserve serve` command, which starts the HTTP
// server exposing the ingest/query pipeline.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragserve HTTP server",
		Long: `Start the ragserve HTTP server on localhost.

The server exposes POST /ingest and POST /query, plus /healthz, /readyz, and
Prometheus /metrics. It connects to the embedding service, the generation
service, and Qdrant at startup; /readyz reflects their live reachability.

Examples:
  ragserve serve
  ragserve serve --port 9090
  RAGSERVE_API_KEY=secret ragserve serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Explicit flags win over RAGSERVE_HOST / RAGSERVE_PORT.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("RAGSERVE_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("RAGSERVE_PORT", port)
			}

			embeddingEndpoint := getEnvOrDefault("EMBEDDING_ENDPOINT", "http://localhost:3001")
			generationEndpoint := getEnvOrDefault("GENERATION_ENDPOINT", "http://localhost:3000")

			emb, err := buildEmbedder()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("endpoint", embeddingEndpoint))

			gen, err := generator.New(&generator.Config{
				BaseURL: generationEndpoint,
				Timeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise generator: %w", err)
			}
			log.Info("generator initialised", slog.String("endpoint", generationEndpoint))

			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			pipeline, err := ingest.NewPipeline(emb, store, &ingest.Config{
				ChunkSize:    getEnvInt("CHUNK_SIZE", 200),
				ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 20),
				TagTopN:      getEnvInt("TAG_TOP_N", 3),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			threshold := getEnvFloat32("RETRIEVAL_SCORE_THRESHOLD", 0.5)
			retriever, err := rag.NewRetriever(emb, store, &rag.RetrieverConfig{
				DefaultTopK:    getEnvInt("RETRIEVAL_TOP_K", 3),
				ScoreThreshold: &threshold,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create retriever: %w", err)
			}

			composer, err := rag.NewComposer(gen, getEnvInt("GENERATION_MAX_TOKENS", 128))
			if err != nil {
				return fmt.Errorf("serve: failed to create composer: %w", err)
			}

			// Open the document store. RAGSERVE_DOCSTORE_DB overrides the
			// default path (~/.ragserve/documents.db). Set to "disabled" to
			// skip commit-token persistence entirely.
			var docs server.DocumentStore
			docPath := os.Getenv("RAGSERVE_DOCSTORE_DB")
			if docPath != "disabled" {
				if docPath == "" {
					docPath, err = docstore.DefaultDBPath()
					if err != nil {
						log.Warn("docstore: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if docPath != "" {
					ds, dsErr := docstore.Open(docPath)
					if dsErr != nil {
						log.Warn("docstore: failed to open, disabling", slog.Any("error", dsErr))
					} else {
						docs = ds
						defer func() { _ = ds.Close() }()
						log.Info("docstore: opened", slog.String("path", docPath))
					}
				}
			} else {
				log.Info("docstore: disabled via RAGSERVE_DOCSTORE_DB=disabled")
			}

			// Open the query audit log, same override and disable semantics.
			var queryLog server.QueryLog
			logPath := os.Getenv("RAGSERVE_REQUESTLOG_DB")
			if logPath != "disabled" {
				if logPath == "" {
					logPath, err = requestlog.DefaultDBPath()
					if err != nil {
						log.Warn("requestlog: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if logPath != "" {
					rl, rlErr := requestlog.Open(logPath)
					if rlErr != nil {
						log.Warn("requestlog: failed to open, disabling", slog.Any("error", rlErr))
					} else {
						queryLog = rl
						defer func() { _ = rl.Close() }()
						log.Info("requestlog: opened", slog.String("path", logPath))
					}
				}
			} else {
				log.Info("requestlog: disabled via RAGSERVE_REQUESTLOG_DB=disabled")
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(store.Client()),
				server.NewHTTPPinger("embedding", embeddingEndpoint),
				server.NewHTTPPinger("generation", generationEndpoint),
			}

			srv, err := server.New(
				&server.Dependencies{
					Pipeline:   pipeline,
					Retriever:  retriever,
					Composer:   composer,
					DocStore:   docs,
					RequestLog: queryLog,
				},
				&server.Config{
					Host:        host,
					Port:        port,
					Logger:      log,
					Pingers:     pingers,
					APIKey:      os.Getenv("RAGSERVE_API_KEY"),
					DefaultTopK: getEnvInt("RETRIEVAL_TOP_K", 3),
				},
			)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
