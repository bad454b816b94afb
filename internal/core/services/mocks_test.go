package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// --- Mock implementations ---

// llmCall records one Generate call.
type llmCall struct {
	prompt string
	opts   driven.GenerateOptions
}

// mockLLMService implements driven.LLMService for testing.
// Replies are returned in order; the last reply repeats once the list is used up.
type mockLLMService struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error // by call index
	calls   []llmCall
	block   chan struct{}
	entered chan struct{}
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, llmCall{prompt: prompt, opts: opts})
	block, entered := m.block, m.entered
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err := m.errs[idx]; err != nil {
		return "", err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx], nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-model"
}

func (m *mockLLMService) Ping(context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLMService) call(i int) llmCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	loadErr error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

func (m *mockPromptStore) Names() []string {
	names := make([]string, 0, len(m.prompts))
	for name := range m.prompts {
		names = append(names, name)
	}
	return names
}

func (m *mockPromptStore) Dir() string {
	return ""
}

// mockExtractor implements driven.TextExtractor for testing.
type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Name() string {
	return "mock"
}

func (m *mockExtractor) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

func (m *mockExtractor) SupportedExtensions() []string {
	return []string{".txt"}
}

func (m *mockExtractor) Extract(_ context.Context, _ string, content []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.text != "" {
		return m.text, nil
	}
	return string(content), nil
}

// mockExtractorRegistry implements driven.ExtractorRegistry for testing.
// It serves a single extractor for ".txt" names.
type mockExtractorRegistry struct {
	extractor driven.TextExtractor
}

func (m *mockExtractorRegistry) Register(e driven.TextExtractor) { m.extractor = e }

func (m *mockExtractorRegistry) Get(name, _ string) (driven.TextExtractor, error) {
	if m.extractor == nil || !strings.HasSuffix(name, ".txt") {
		return nil, domain.ErrUnsupportedType
	}
	return m.extractor, nil
}

func (m *mockExtractorRegistry) Extensions() []string {
	return []string{".txt"}
}

// mockExporter implements driven.Exporter for testing.
type mockExporter struct {
	format domain.ExportFormat
	err    error
	got    domain.Document
}

func (m *mockExporter) Format() domain.ExportFormat {
	return m.format
}

func (m *mockExporter) Export(doc domain.Document) ([]byte, error) {
	m.got = doc
	if m.err != nil {
		return nil, m.err
	}
	return []byte(doc.Markdown), nil
}

// stageEvent records one observer notification.
type stageEvent struct {
	started bool
	stage   domain.Stage
	err     error
}

// mockObserver implements driven.StageObserver for testing.
type mockObserver struct {
	mu     sync.Mutex
	events []stageEvent
}

func (m *mockObserver) StageStarted(_ string, stage domain.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stageEvent{started: true, stage: stage})
}

func (m *mockObserver) StageFinished(_ string, stage domain.Stage, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stageEvent{stage: stage, err: err})
}

// failingRunStore wraps a RunStore and fails Save once armed.
type failingRunStore struct {
	driven.RunStore
	failSave bool
}

func (f *failingRunStore) Save(ctx context.Context, run domain.Run) error {
	if f.failSave {
		return errSaveFailed
	}
	return f.RunStore.Save(ctx, run)
}

var errSaveFailed = errors.New("disk full")
