// Package commands defines all Cobra CLI commands for the ragserve binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/ragstack/ragserve/internal/audit"
	"github.com/ragstack/ragserve/internal/config"
	"github.com/ragstack/ragserve/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragserve",
		Short: "ragserve — a retrieval-augmented generation pipeline over Qdrant",
		Long: `ragserve ingests raw text documents into a Qdrant vector index and answers
natural-language questions grounded in the retrieved context.

Ingestion chunks each document with a sliding window, tags it with its most
frequent keywords, embeds every chunk via the embedding service, and indexes
the vectors. Querying embeds the question, retrieves the closest chunks above
a relevance threshold, and generates an answer from them.

The embedding and generation services, Qdrant, and retrieval parameters are
configured via environment variables or a YAML config file
(~/.ragserve/config.yaml). See 'ragserve --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragserve/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewQueryCmd(),
		NewVersionCmd(),
	)

	return root
}
