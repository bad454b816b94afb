package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a language-model provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// APIKeyEnv returns the environment variable holding the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Timeout bounds each request. Zero means no client timeout.
	Timeout time.Duration

	// RequestsPerMinute limits outbound calls. Zero means unlimited.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ModelOrDefault returns Model, or the provider's default model.
func (l LLMSettings) ModelOrDefault() string {
	if l.Model != "" {
		return l.Model
	}
	return DefaultLLMModels()[l.Provider]
}

// FallbackPolicy decides what happens when the parsing stage falls back.
type FallbackPolicy string

// Fallback policies.
const (
	// FallbackContinue passes the fallback record on to the next stage.
	FallbackContinue FallbackPolicy = "continue"

	// FallbackHalt records the parse error as a run failure.
	FallbackHalt FallbackPolicy = "halt"
)

// IsValid returns true if the policy is recognised.
func (p FallbackPolicy) IsValid() bool {
	return p == FallbackContinue || p == FallbackHalt
}

// PipelineSettings holds stage execution settings.
type PipelineSettings struct {
	// MaxInputChars truncates the document text sent to the parsing stage.
	MaxInputChars int

	// Fallback is the policy for an unusable parse reply.
	Fallback FallbackPolicy
}

// DefaultMaxInputChars is the parse payload budget in characters.
const DefaultMaxInputChars = 15000

// DefaultPipelineSettings returns the stock stage settings.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		MaxInputChars: DefaultMaxInputChars,
		Fallback:      FallbackContinue,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderAnthropic,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-7-sonnet-20250219",
	}
}

// GenerationParams controls one language-model call.
type GenerationParams struct {
	// MaxTokens caps the reply length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// SessionBackend selects where runs are kept between requests.
type SessionBackend string

// Session storage backends.
const (
	SessionsMemory SessionBackend = "memory"
	SessionsSQLite SessionBackend = "sqlite"
	SessionsRedis  SessionBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b SessionBackend) IsValid() bool {
	switch b {
	case SessionsMemory, SessionsSQLite, SessionsRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b SessionBackend) String() string {
	return string(b)
}

// ServerSettings holds web server configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// AccessPassword gates the UI. Empty leaves it open.
	AccessPassword string

	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration

	// MaxUploadMB caps the uploaded document size.
	MaxUploadMB int
}

// StorageSettings holds session storage configuration.
type StorageSettings struct {
	// Sessions is the run store backend.
	Sessions SessionBackend

	// DataDir holds the SQLite database.
	DataDir string

	// Redis connection settings.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// PromptSettings holds prompt template configuration.
type PromptSettings struct {
	// Dir is the directory holding editable prompt files.
	Dir string

	// Watch reloads prompts when files in Dir change.
	Watch bool
}

// ExportSettings holds output defaults for command line runs.
type ExportSettings struct {
	// Formats are written when no --format is given.
	Formats []ExportFormat
}

// AppSettings holds all application settings.
type AppSettings struct {
	LLM      LLMSettings
	Server   ServerSettings
	Storage  StorageSettings
	Prompts  PromptSettings
	Pipeline PipelineSettings
	Export   ExportSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Directory settings are left empty; callers resolve them against the
// config directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: AIProviderAnthropic,
			Model:    DefaultLLMModels()[AIProviderAnthropic],
		},
		Server: ServerSettings{
			Addr:        ":8501",
			SessionTTL:  4 * time.Hour,
			MaxUploadMB: 25,
		},
		Storage: StorageSettings{
			Sessions:  SessionsMemory,
			RedisAddr: "localhost:6379",
		},
		Pipeline: DefaultPipelineSettings(),
		Export:   ExportSettings{Formats: AllExportFormats()},
	}
}
