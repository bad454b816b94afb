package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()

	// Names returns every known prompt name in a stable order.
	Names() []string

	// Dir returns the directory prompts are read from.
	Dir() string
}

// Well-known prompt names used by the pipeline stages.
// Each stage has a user prompt template and a system prompt. Templates carry
// one %s placeholder per payload, in the order the stage passes them.
const (
	// PromptParse expects the (truncated) document text.
	PromptParse = "parse"

	// PromptParseSystem has no placeholders.
	PromptParseSystem = "parse_system"

	// PromptRetrieve expects the requirement set.
	PromptRetrieve = "retrieve"

	// PromptRetrieveSystem has no placeholders.
	PromptRetrieveSystem = "retrieve_system"

	// PromptDraft expects the requirement set, then the knowledge text.
	PromptDraft = "draft"

	// PromptDraftSystem has no placeholders.
	PromptDraftSystem = "draft_system"

	// PromptReview expects the draft, then the requirement set.
	PromptReview = "review"

	// PromptReviewSystem has no placeholders.
	PromptReviewSystem = "review_system"
)
