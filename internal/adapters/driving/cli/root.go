// Package cli provides the bidwright command line.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/ai"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
	"github.com/custodia-labs/bidwright/internal/core/services"
	"github.com/custodia-labs/bidwright/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	configDir string
	verbose   bool
)

// Services wired by bootstrap. Tests assign them directly.
var (
	settingsService driving.SettingsService
	pipelineService driving.PipelineService
	exportService   driving.ExportService
	promptSource    promptFiles
	extensions      []string
)

// promptFiles is the editable prompt set.
type promptFiles interface {
	Names() []string
	Load(name string) (string, error)
	Dir() string
	Path(name string) string
}

var rootCmd = &cobra.Command{
	Use:   "bidwright",
	Short: "Draft RFP responses with a four-agent pipeline",
	Long: `bidwright turns an RFP document into a draft response.

Four agents run in order: a parser extracts the requirements, a retriever
gathers matching company knowledge, a drafter writes the response and a
reviewer checks it. The result is written as Markdown, HTML, Word or PDF.

Run one document from the terminal with 'bidwright run', or start the web
interface with 'bidwright serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration directory (default $"+file.HomeEnv+" or ~/.bidwright)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads .env and the settings store before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not read .env: %v", err)
	}

	if settingsService != nil {
		return nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger.Debug("configuration: %s", store.Path())
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return nil
}
