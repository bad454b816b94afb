package ai

import (
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = ConfigValidator{}

// ConfigValidator pings the configured provider through CreateLLMService.
type ConfigValidator struct{}

// NewConfigValidator returns the validator used by config set-key.
func NewConfigValidator() ConfigValidator {
	return ConfigValidator{}
}

// ValidateLLM builds a client for settings and pings it.
func (ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	return ValidateLLMConfig(settings)
}
