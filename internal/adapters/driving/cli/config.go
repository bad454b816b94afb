package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change the settings stored in config.toml.

Use 'config set-key' to configure the language model provider and its API
key without echoing the key.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting",
	Long: `Set one setting by its dotted key, for example:

  bidwright config set llm.model gpt-4o
  bidwright config set storage.sessions sqlite
  bidwright config set pipeline.fallback halt

Run 'bidwright config keys' for the full list.`,
	Args:              cobra.ExactArgs(2),
	RunE:              runConfigSet,
	ValidArgsFunction: completeConfigKeys,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every setting key",
	RunE:  runConfigKeys,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [provider]",
	Short: "Configure the LLM provider and API key",
	Long: `Choose the language model provider and enter its API key. The key is
read from the terminal without echo and stored in config.toml.

Providers: anthropic, openai, ollama. Without an argument you are asked to
choose one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigSetKey,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configSetKeyCmd.Flags().String("model", "", "model name (default: the provider's default model)")
	configSetKeyCmd.Flags().Bool("no-verify", false, "skip the connectivity check")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" || settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if settings.LLM.Timeout > 0 {
		cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	} else {
		cmd.Println("  Timeout: none")
	}
	if settings.LLM.RequestsPerMinute > 0 {
		cmd.Printf("  Rate limit: %d requests/minute\n", settings.LLM.RequestsPerMinute)
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	if settings.Server.AccessPassword != "" {
		cmd.Println("  Access password: set")
	} else {
		cmd.Println("  Access password: (open)")
	}
	cmd.Printf("  Session TTL: %s\n", settings.Server.SessionTTL)
	cmd.Printf("  Max upload: %d MB\n", settings.Server.MaxUploadMB)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Sessions: %s\n", settings.Storage.Sessions)
	switch settings.Storage.Sessions {
	case domain.SessionsSQLite:
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	case domain.SessionsRedis:
		cmd.Printf("  Redis: %s (db %d)\n", settings.Storage.RedisAddr, settings.Storage.RedisDB)
		if settings.Storage.RedisPassword != "" {
			cmd.Printf("  Redis password: %s\n", maskAPIKey(settings.Storage.RedisPassword))
		}
	}
	cmd.Println()

	cmd.Println("[Prompts]")
	cmd.Printf("  Dir: %s\n", settings.Prompts.Dir)
	cmd.Printf("  Watch: %t\n", settings.Prompts.Watch)
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Max input chars: %d\n", settings.Pipeline.MaxInputChars)
	cmd.Printf("  Fallback: %s\n", settings.Pipeline.Fallback)
	cmd.Println()

	cmd.Println("[Export]")
	cmd.Printf("  Formats: %s\n", joinFormats(settings.Export.Formats))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if services.SecretKeys[key] {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || settingsService == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return settingsService.Keys(), cobra.ShellCompDirectiveNoFileComp
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	var provider domain.AIProvider
	if len(args) == 1 {
		provider = domain.AIProvider(strings.ToLower(args[0]))
		if !provider.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, args[0])
		}
	} else {
		provider = chooseProvider(cmd, reader, settings.LLM.Provider)
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" && provider == settings.LLM.Provider {
		model = settings.LLM.Model
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Printf("Enter %s API key: ", provider.Description())
		apiKey = readSecret(cmd, reader)
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if noVerify, _ := cmd.Flags().GetBool("no-verify"); !noVerify {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateLLMConfig(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	updated, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), updated.LLM.Model)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	home, err := homeDir()
	if err != nil {
		return err
	}
	cmd.Println(filepath.Join(home, file.ConfigFileName))
	return nil
}

func joinFormats(formats []domain.ExportFormat) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.Extension()
	}
	return strings.Join(names, ",")
}

// chooseProvider asks for a provider, defaulting to current.
func chooseProvider(cmd *cobra.Command, reader *bufio.Reader, current domain.AIProvider) domain.AIProvider {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	defaultIdx := 1
	for i, p := range providers {
		if p == current {
			defaultIdx = i + 1
		}
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultIdx)
	idx := parseChoice(readLine(reader), len(providers), defaultIdx)
	return providers[idx-1]
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo from a terminal, otherwise one line.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
