// Package cli implements the helpdesk command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/helpdesk-rag/internal/app"
	"github.com/arturoeanton/helpdesk-rag/pkg/config"
	"github.com/arturoeanton/helpdesk-rag/pkg/logger"
)

const rootLongDesc = `helpdesk is a retrieval-augmented help desk chatbot.

Documents and web pages are chunked, embedded and stored in a vector store;
questions are answered only from the closest chunks, with fallback across
several LLM providers.

  helpdesk serve                     Run the HTTP API (and MCP server if enabled)
  helpdesk ingest --file guide.pdf   Ingest a document
  helpdesk ingest --url https://...  Ingest a web page
  helpdesk ask "How do I reset..."   Ask a question from the terminal
  helpdesk token --role admin        Mint a bearer token`

type globalFlags struct {
	envFile string
	debug   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Retrieval-augmented help desk chatbot",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newIngestCmd(flags))
	cmd.AddCommand(newAskCmd(flags))
	cmd.AddCommand(newTokenCmd(flags))

	return cmd
}

// loadConfig reads the dotenv file (if present) and the environment, and installs
// the default logger.
func loadConfig(flags *globalFlags) (*config.Config, *slog.Logger) {
	_ = godotenv.Load(flags.envFile) // silently ignore if the file doesn't exist

	cfg := config.Load()
	log := logger.New(
		logger.WithDebug(cfg.LogDebug || flags.debug),
		logger.WithFormat(cfg.LogFormat),
	)
	slog.SetDefault(log)
	return cfg, log
}

func buildApp(flags *globalFlags) (*app.App, error) {
	cfg, log := loadConfig(flags)
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}
