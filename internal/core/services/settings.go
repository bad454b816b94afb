package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyLLMProvider       = "llm.provider"
	KeyLLMModel          = "llm.model"
	KeyLLMAPIKey         = "llm.api_key"
	KeyLLMBaseURL        = "llm.base_url"
	KeyLLMTimeout        = "llm.timeout_seconds"
	KeyLLMRequestsPerMin = "llm.requests_per_minute"
	KeyServerAddr        = "server.addr"
	KeyServerPassword    = "server.access_password"
	KeyServerSessionTTL  = "server.session_ttl_minutes"
	KeyServerMaxUploadMB = "server.max_upload_mb"
	KeyStorageSessions   = "storage.sessions"
	KeyStorageDataDir    = "storage.data_dir"
	KeyRedisAddr         = "storage.redis_addr"
	KeyRedisPassword     = "storage.redis_password"
	KeyRedisDB           = "storage.redis_db"
	KeyPromptsDir        = "prompts.dir"
	KeyPromptsWatch      = "prompts.watch"
	KeyMaxInputChars     = "pipeline.max_input_chars"
	KeyFallbackPolicy    = "pipeline.fallback"
	KeyExportFormats     = "export.formats"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindList
)

// settingKeys lists every recognised key with its value kind, in display order.
var settingKeys = []struct {
	key  string
	kind keyKind
}{
	{KeyLLMProvider, kindString},
	{KeyLLMModel, kindString},
	{KeyLLMAPIKey, kindString},
	{KeyLLMBaseURL, kindString},
	{KeyLLMTimeout, kindInt},
	{KeyLLMRequestsPerMin, kindInt},
	{KeyServerAddr, kindString},
	{KeyServerPassword, kindString},
	{KeyServerSessionTTL, kindInt},
	{KeyServerMaxUploadMB, kindInt},
	{KeyStorageSessions, kindString},
	{KeyStorageDataDir, kindString},
	{KeyRedisAddr, kindString},
	{KeyRedisPassword, kindString},
	{KeyRedisDB, kindInt},
	{KeyPromptsDir, kindString},
	{KeyPromptsWatch, kindBool},
	{KeyMaxInputChars, kindInt},
	{KeyFallbackPolicy, kindString},
	{KeyExportFormats, kindList},
}

// SecretKeys are masked when settings are displayed.
var SecretKeys = map[string]bool{
	KeyLLMAPIKey:      true,
	KeyServerPassword: true,
	KeyRedisPassword:  true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// API keys missing from the config file are read from the provider's
// environment variable.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(KeyLLMProvider, defaults.LLM.Provider)
	model := s.configStore.GetString(KeyLLMModel)
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	apiKey := s.configStore.GetString(KeyLLMAPIKey)
	if apiKey == "" && provider.APIKeyEnv() != "" {
		apiKey = s.getenv(provider.APIKeyEnv())
	}

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(KeyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:            apiKey,
			Timeout:           time.Duration(s.getInt(KeyLLMTimeout, 0)) * time.Second,
			RequestsPerMinute: s.getInt(KeyLLMRequestsPerMin, 0),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(KeyServerAddr, defaults.Server.Addr),
			AccessPassword: s.configStore.GetString(KeyServerPassword),
			SessionTTL:     s.getMinutes(KeyServerSessionTTL, defaults.Server.SessionTTL),
			MaxUploadMB:    s.getInt(KeyServerMaxUploadMB, defaults.Server.MaxUploadMB),
		},
		Storage: domain.StorageSettings{
			Sessions:      s.getBackend(defaults.Storage.Sessions),
			DataDir:       s.configStore.GetString(KeyStorageDataDir),
			RedisAddr:     s.getString(KeyRedisAddr, defaults.Storage.RedisAddr),
			RedisPassword: s.configStore.GetString(KeyRedisPassword),
			RedisDB:       s.configStore.GetInt(KeyRedisDB),
		},
		Prompts: domain.PromptSettings{
			Dir:   s.configStore.GetString(KeyPromptsDir),
			Watch: s.getBool(KeyPromptsWatch, defaults.Prompts.Watch),
		},
		Pipeline: domain.PipelineSettings{
			MaxInputChars: s.getInt(KeyMaxInputChars, defaults.Pipeline.MaxInputChars),
			Fallback:      s.getPolicy(defaults.Pipeline.Fallback),
		},
		Export: domain.ExportSettings{
			Formats: s.getFormats(defaults.Export.Formats),
		},
	}

	return settings, nil
}

// Keys returns every recognised configuration key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Set validates and stores one configuration key.
// Values are converted to the key's kind before being saved.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := validateSetting(key, value); err != nil {
		return err
	}

	var stored any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		stored = b
	case kindList:
		formats, err := parseFormatList(value)
		if err != nil {
			return err
		}
		stored = formats
	default:
		stored = value
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	// Set model - use provided or default
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	// Local providers need a base URL; cloud providers use their default.
	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.configStore.GetString(KeyLLMBaseURL)
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
	}

	if err := s.configStore.Set(KeyLLMProvider, provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(KeyLLMModel, model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(KeyLLMBaseURL, baseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(KeyLLMAPIKey, apiKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	return nil
}

// Validate checks that the settings can drive a run.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		if env := settings.LLM.Provider.APIKeyEnv(); env != "" {
			return fmt.Errorf("%w: %s needs an API key (set %s or run 'bidwright config set-key')",
				domain.ErrLLMUnavailable, settings.LLM.Provider.Description(), env)
		}
		return fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if settings.Storage.Sessions == domain.SessionsRedis && settings.Storage.RedisAddr == "" {
		return fmt.Errorf("%w: redis session storage needs %s", domain.ErrInvalidInput, KeyRedisAddr)
	}
	return nil
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func lookupKind(key string) (keyKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return kindString, false
}

func validateSetting(key, value string) error {
	switch key {
	case KeyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid LLM provider %q", domain.ErrInvalidInput, value)
		}
	case KeyStorageSessions:
		if !domain.SessionBackend(value).IsValid() {
			return fmt.Errorf("%w: invalid session storage %q", domain.ErrInvalidInput, value)
		}
	case KeyFallbackPolicy:
		if !domain.FallbackPolicy(value).IsValid() {
			return fmt.Errorf("%w: fallback must be %q or %q", domain.ErrInvalidInput,
				domain.FallbackContinue, domain.FallbackHalt)
		}
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMinutes(key string, defaultVal time.Duration) time.Duration {
	if m := s.configStore.GetInt(key); m > 0 {
		return time.Duration(m) * time.Minute
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.SessionBackend) domain.SessionBackend {
	backend := domain.SessionBackend(s.configStore.GetString(KeyStorageSessions))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// getFormats skips stored names that no longer parse.
func (s *SettingsService) getFormats(defaultVal []domain.ExportFormat) []domain.ExportFormat {
	var formats []domain.ExportFormat
	for _, name := range s.configStore.GetStringSlice(KeyExportFormats) {
		if f, err := domain.ParseExportFormat(name); err == nil {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return defaultVal
	}
	return formats
}

// parseFormatList turns "md, pdf" into canonical format names.
func parseFormatList(value string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := domain.ParseExportFormat(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, KeyExportFormats, err)
		}
		names = append(names, f.String())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one format", domain.ErrInvalidInput, KeyExportFormats)
	}
	return names, nil
}

func (s *SettingsService) getPolicy(defaultVal domain.FallbackPolicy) domain.FallbackPolicy {
	policy := domain.FallbackPolicy(s.configStore.GetString(KeyFallbackPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}
