package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// stagePromptNames maps each agent stage to its template and system prompt names.
var stagePromptNames = map[domain.Stage][2]string{
	domain.StageParsing:    {driven.PromptParse, driven.PromptParseSystem},
	domain.StageRetrieving: {driven.PromptRetrieve, driven.PromptRetrieveSystem},
	domain.StageDrafting:   {driven.PromptDraft, driven.PromptDraftSystem},
	domain.StageReviewing:  {driven.PromptReview, driven.PromptReviewSystem},
}

// StageRunner sends one stage's prompt to the language model.
// It holds no run state; callers pass every payload explicitly.
type StageRunner struct {
	llm           driven.LLMService
	promptStore   driven.PromptStore
	params        map[domain.Stage]domain.GenerationParams
	maxInputChars int
}

// NewStageRunner creates a stage runner.
// The prompt store is optional; without it the stock agent prompts are used.
func NewStageRunner(llm driven.LLMService, promptStore driven.PromptStore, settings domain.PipelineSettings) *StageRunner {
	maxChars := settings.MaxInputChars
	if maxChars <= 0 {
		maxChars = domain.DefaultMaxInputChars
	}
	return &StageRunner{
		llm:           llm,
		promptStore:   promptStore,
		params:        domain.DefaultGenerationParams(),
		maxInputChars: maxChars,
	}
}

// ParseDocument runs the parsing stage. An unusable reply is not an error:
// it yields a fallback record. Only the model call can fail.
func (r *StageRunner) ParseDocument(ctx context.Context, text string) (domain.RequirementSet, error) {
	reply, err := r.invoke(ctx, domain.StageParsing, TruncateRunes(text, r.maxInputChars))
	if err != nil {
		return domain.RequirementSet{}, err
	}
	return ParseRequirements(reply), nil
}

// RetrieveKnowledge runs the retrieving stage.
func (r *StageRunner) RetrieveKnowledge(ctx context.Context, reqs domain.RequirementSet) (string, error) {
	return r.invoke(ctx, domain.StageRetrieving, reqs.String())
}

// DraftResponse runs the drafting stage.
func (r *StageRunner) DraftResponse(ctx context.Context, reqs domain.RequirementSet, knowledge string) (string, error) {
	return r.invoke(ctx, domain.StageDrafting, reqs.String(), knowledge)
}

// ReviewDraft runs the reviewing stage.
func (r *StageRunner) ReviewDraft(ctx context.Context, draft string, reqs domain.RequirementSet) (string, error) {
	return r.invoke(ctx, domain.StageReviewing, draft, reqs.String())
}

// invoke builds the stage prompt from its template and payloads and makes
// exactly one model call.
func (r *StageRunner) invoke(ctx context.Context, stage domain.Stage, payloads ...string) (string, error) {
	if r.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	names, ok := stagePromptNames[stage]
	if !ok {
		return "", fmt.Errorf("%w: %s is not an agent stage", domain.ErrInvalidInput, stage)
	}

	defaults := domain.DefaultAgentPrompts()[stage]
	template := r.loadPrompt(names[0], defaults.Template)
	system := r.loadPrompt(names[1], defaults.System)

	params := r.params[stage]
	reply, err := r.llm.Generate(ctx, Interpolate(template, payloads...), driven.GenerateOptions{
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		System:      strings.TrimSpace(system),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", stage.Label(), err)
	}
	return reply, nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (r *StageRunner) loadPrompt(name, fallback string) string {
	if r.promptStore == nil {
		return fallback
	}
	prompt, err := r.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

// Interpolate replaces each %s in template with the next payload.
// Payloads are inserted verbatim, so '%' inside them is never interpreted.
// Placeholders beyond the payloads are left empty; extra payloads are
// appended on their own lines so no input is silently dropped.
func Interpolate(template string, payloads ...string) string {
	var b strings.Builder
	next := 0
	rest := template
	for {
		i := strings.Index(rest, "%s")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		if next < len(payloads) {
			b.WriteString(payloads[next])
			next++
		}
		rest = rest[i+2:]
	}
	for ; next < len(payloads); next++ {
		b.WriteString("\n\n")
		b.WriteString(payloads[next])
	}
	return b.String()
}

// TruncateRunes cuts s to at most limit characters without splitting a rune.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
