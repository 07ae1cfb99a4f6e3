// Command ragserve is the entry point for the retrieval-augmented generation
// service. It provides a CLI interface (via Cobra) for one-shot ingestion and
// querying, and an HTTP server exposing the pipeline as a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ragstack/ragserve/cmd/ragserve/commands"
)

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
