package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the file extension of prompt files.
const promptExt = ".txt"

// PromptStore loads stage prompts from user-editable files on disk.
// Each prompt lives in <dir>/<name>.txt; a missing or unreadable file falls
// back to the built-in agent prompt.
//
// Files are only created on the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	defaults  map[string]string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// DefaultPrompts returns the built-in prompt for every known prompt name.
func DefaultPrompts() map[string]string {
	stock := domain.DefaultAgentPrompts()
	pairs := map[domain.Stage][2]string{
		domain.StageParsing:    {driven.PromptParse, driven.PromptParseSystem},
		domain.StageRetrieving: {driven.PromptRetrieve, driven.PromptRetrieveSystem},
		domain.StageDrafting:   {driven.PromptDraft, driven.PromptDraftSystem},
		domain.StageReviewing:  {driven.PromptReview, driven.PromptReviewSystem},
	}
	prompts := make(map[string]string, 2*len(pairs))
	for stage, names := range pairs {
		prompts[names[0]] = stock[stage].Template
		prompts[names[1]] = stock[stage].System
	}
	return prompts
}

// promptNames lists prompt names in stage order, template before system.
var promptNames = []string{
	driven.PromptParse, driven.PromptParseSystem,
	driven.PromptRetrieve, driven.PromptRetrieveSystem,
	driven.PromptDraft, driven.PromptDraftSystem,
	driven.PromptReview, driven.PromptReviewSystem,
}

// NewPromptStore creates a file-based prompt store.
// If promptDir is empty, defaults to <config dir>/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		defaults:  DefaultPrompts(),
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt for the given name. Edited files win over the
// built-in prompt; results are cached until Reload.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := s.defaults[name]
	if !known {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		prompt = fallback
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Names returns every prompt name in stage order.
func (s *PromptStore) Names() []string {
	out := make([]string, len(promptNames))
	copy(out, promptNames)
	return out
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Path returns the file a prompt is read from.
func (s *PromptStore) Path(name string) string {
	return filepath.Join(s.promptDir, name+promptExt)
}

// initialise creates the prompt directory and writes any missing default
// files. Existing files are never overwritten.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for _, name := range promptNames {
		path := s.Path(name)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(s.defaults[name]), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
	s.initErr = s.createReadme()
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var b strings.Builder
	b.WriteString("# bidwright prompts\n\n")
	b.WriteString("Each file holds the prompt one pipeline agent sends to the language model.\n")
	b.WriteString("Edit a file to change that agent; delete it to restore the built-in text.\n\n")
	b.WriteString("## Files\n\n")
	for _, name := range promptNames {
		fmt.Fprintf(&b, "- `%s%s`\n", name, promptExt)
	}
	b.WriteString(`
## Placeholders

Templates (files without the _system suffix) receive their inputs through
%s placeholders, filled in order:

- parse: document text
- retrieve: requirements
- draft: requirements, then knowledge
- review: draft, then requirements

Missing placeholders leave the input appended at the end of the prompt.
Running ` + "`bidwright serve`" + ` with prompts.watch = true picks up edits without a restart.
`)
	return os.WriteFile(path, []byte(b.String()), 0600)
}
