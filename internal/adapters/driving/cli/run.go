package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/bidwright/internal/adapters/driving/tui"
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/logger"
)

const defaultFormats = "md,html,docx,pdf"

var (
	runOut     string
	runFormats string
	runTUI     bool
	runStep    bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Draft a response for one RFP document",
	Long: `Extract the text of an RFP document, run the four agents over it and
write the response in the requested formats.

Supported inputs are PDF, Word (.docx), HTML and plain text or Markdown.

Examples:
  bidwright run rfp.pdf
  bidwright run rfp.docx --out drafts --format md,pdf
  bidwright run rfp.pdf --tui --step`,
	Args: cobra.ExactArgs(1),
	RunE: runDocument,
}

func init() {
	runCmd.Flags().StringVarP(&runOut, "out", "o", ".", "directory for the response files")
	runCmd.Flags().StringVarP(&runFormats, "format", "f", defaultFormats, "comma-separated output formats")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show progress in the terminal UI")
	runCmd.Flags().BoolVar(&runStep, "step", false, "pause before each agent")
	rootCmd.AddCommand(runCmd)
}

func runDocument(cmd *cobra.Command, args []string) error {
	formats, err := outputFormats(cmd)
	if err != nil {
		return err
	}
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ctx := cmd.Context()
	stop, err := startPipeline(ctx)
	if err != nil {
		return err
	}
	defer stop()

	sessionID := "cli-" + uuid.NewString()
	defer discard(ctx, sessionID)

	name := filepath.Base(path)
	run, err := pipelineService.Upload(ctx, sessionID, name, mime.TypeByExtension(filepath.Ext(name)), content)
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	cmd.Printf("Loaded %s (%d characters)\n", name, len([]rune(run.RawText)))

	save := saveTo(runOut)
	if runTUI {
		return runInTUI(cmd, sessionID, formats, save)
	}

	run, err = advanceAll(cmd, sessionID)
	if err != nil {
		return err
	}
	return writeOutputs(cmd, run, formats, save)
}

// advanceAll runs every agent in order, printing progress.
func advanceAll(cmd *cobra.Command, sessionID string) (domain.Run, error) {
	ctx := cmd.Context()
	reader := bufio.NewReader(cmd.InOrStdin())

	run, err := pipelineService.Start(ctx, sessionID)
	if err != nil {
		return run, fmt.Errorf("starting run: %w", err)
	}
	for !run.Done() {
		stage := run.Stage
		if runStep {
			cmd.Printf("Press Enter to run the %s... ", stage.Label())
			readLine(reader)
		}
		cmd.Printf("▸ %s: %s\n", stage.Label(), stage.Activity())

		started := time.Now()
		run, err = pipelineService.Advance(ctx, sessionID)
		if err != nil {
			cmd.Printf("✗ %s failed\n", stage.Label())
			return run, fmt.Errorf("%s: %w", stage.Label(), err)
		}
		cmd.Printf("✓ %s (%s)\n", stage.Label(), time.Since(started).Round(time.Millisecond))

		if stage == domain.StageParsing && run.Requirements != nil && run.Requirements.IsFallback() {
			cmd.Printf("  warning: requirements kept as raw text (%s)\n", run.Requirements.Error)
		}
	}
	return run, nil
}

// writeOutputs exports the finished run in each format. A failing format
// is reported and the others are still written.
func writeOutputs(cmd *cobra.Command, run domain.Run, formats []domain.ExportFormat, save tui.SaveFunc) error {
	var errs []error
	for _, format := range formats {
		artifact, err := exportService.Export(cmd.Context(), run, format)
		if err == nil {
			var path string
			if path, err = save(artifact); err == nil {
				cmd.Printf("Wrote %s\n", path)
				continue
			}
		}
		cmd.Printf("✗ %s: %v\n", format.Description(), err)
		errs = append(errs, fmt.Errorf("%s: %w", format, err))
	}
	return errors.Join(errs...)
}

func runInTUI(cmd *cobra.Command, sessionID string, formats []domain.ExportFormat, save tui.SaveFunc) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("--tui needs an interactive terminal")
	}

	app, err := tui.NewApp(&tui.Ports{Pipeline: pipelineService, Export: exportService}, tui.Config{
		SessionID: sessionID,
		Step:      runStep,
		Formats:   formats,
		Save:      save,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return app.Err()
}

// saveTo writes artifacts into dir, creating it when needed.
func saveTo(dir string) tui.SaveFunc {
	return func(artifact *domain.Artifact) (string, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
		path := filepath.Join(dir, artifact.FileName)
		if err := os.WriteFile(path, artifact.Content, 0o644); err != nil { //nolint:gosec // output documents are not secret
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		return path, nil
	}
}

// outputFormats prefers --format, then export.formats from the config.
func outputFormats(cmd *cobra.Command) ([]domain.ExportFormat, error) {
	if cmd.Flags().Changed("format") {
		return parseFormats(runFormats)
	}
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return settings.Export.Formats, nil
}

// parseFormats resolves a comma-separated format list, dropping repeats.
func parseFormats(list string) ([]domain.ExportFormat, error) {
	var formats []domain.ExportFormat
	seen := make(map[domain.ExportFormat]bool)
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		format, err := domain.ParseExportFormat(name)
		if err != nil {
			return nil, fmt.Errorf("format %q: %w", strings.TrimSpace(name), err)
		}
		if !seen[format] {
			seen[format] = true
			formats = append(formats, format)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: no output format given", domain.ErrInvalidInput)
	}
	return formats, nil
}

// discard resets a one-shot session so its text does not outlive the command.
func discard(ctx context.Context, sessionID string) {
	if _, err := pipelineService.Reset(context.WithoutCancel(ctx), sessionID); err != nil {
		logger.Warn("discarding session %s: %v", sessionID, err)
	}
}
