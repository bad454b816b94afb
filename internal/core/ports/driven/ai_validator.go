package driven

import "github.com/custodia-labs/bidwright/internal/core/domain"

// AIConfigValidator checks that LLM settings reach a working provider
// before they are relied on. Unconfigured settings pass.
type AIConfigValidator interface {
	ValidateLLM(settings *domain.LLMSettings) error
}
