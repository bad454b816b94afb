package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
	"github.com/custodia-labs/bidwright/internal/core/services"
	"github.com/custodia-labs/bidwright/internal/exporters"
	"github.com/custodia-labs/bidwright/internal/extractors"
	"github.com/custodia-labs/bidwright/internal/logger"
)

// scriptedLLM answers the four stages in order. An error at a call index
// replaces that reply.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	calls   int
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{replies: []string{
		`{"requirements": ["IT consulting"], "deadlines": ["2025-06-01"]}`,
		"We delivered 40 consulting projects.",
		"## Executive Summary\nWe can help.\n- Proven delivery",
		"- Add pricing detail",
	}}
}

func (m *scriptedLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	m.calls++
	if err := m.errs[idx]; err != nil {
		return "", err
	}
	return m.replies[idx%len(m.replies)], nil
}

func (m *scriptedLLM) ModelName() string {
	return "scripted"
}

func (m *scriptedLLM) Ping(context.Context) error {
	return nil
}

func (m *scriptedLLM) Close() error {
	return nil
}

func (m *scriptedLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingExport fails one format and delegates the rest.
type failingExport struct {
	driving.ExportService
	fail domain.ExportFormat
}

func (f *failingExport) Export(ctx context.Context, run domain.Run, format domain.ExportFormat) (*domain.Artifact, error) {
	if format == f.fail {
		return nil, domain.ErrExportFailed
	}
	return f.ExportService.Export(ctx, run, format)
}

// setupTestServices wires real services around llm and a memory config
// store, and restores the package state when the test ends.
func setupTestServices(t *testing.T, llm driven.LLMService) *memory.ConfigStore {
	t.Helper()

	oldSettings, oldPipeline, oldExport := settingsService, pipelineService, exportService
	oldPrompts, oldExtensions, oldMetrics := promptSource, extensions, stageMetrics
	oldConfigDir := configDir
	t.Cleanup(func() {
		settingsService, pipelineService, exportService = oldSettings, oldPipeline, oldExport
		promptSource, extensions, stageMetrics = oldPrompts, oldExtensions, oldMetrics
		configDir = oldConfigDir
		logger.SetOutput(os.Stderr)
	})

	configStore := memory.NewConfigStore(map[string]any{
		services.KeyLLMAPIKey: "sk-test-1234567890",
	})
	settingsService = services.NewSettingsService(configStore, nil)

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	promptSource = prompts

	registry := extractors.NewDefaultRegistry()
	settings := domain.DefaultPipelineSettings()
	pipelineService = services.NewPipelineService(
		services.NewStageRunner(llm, prompts, settings),
		memory.NewRunStore(time.Hour),
		registry,
		settings,
	)
	exportService = services.NewExportService(exporters.All()...)
	extensions = registry.Extensions()
	stageMetrics = nil
	configDir = t.TempDir()

	runOut, runFormats, runTUI, runStep = ".", defaultFormats, false, false
	runCmd.Flags().Lookup("format").Changed = false
	serveAddr, serveSecureCookies = "", false
	require.NoError(t, configSetKeyCmd.Flags().Set("model", ""))
	require.NoError(t, configSetKeyCmd.Flags().Set("no-verify", "false"))
	return configStore
}

// executeCommand runs the root command with args and stdin and returns
// everything written to stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
