package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/config/file"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the agent prompts",
	Long: `Each agent reads its prompt and system instruction from a text file in
the prompt directory. Edit a file to change what the agent is asked; delete
it to restore the built-in prompt. Set prompts.watch to reload edits while
'bidwright serve' is running.`,
	RunE: runPromptsList,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt names and files",
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the prompt the agent will use",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

var promptsPathCmd = &cobra.Command{
	Use:   "path [name]",
	Short: "Print the prompt directory, or the file for one prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPromptsPath,
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsPathCmd)
	rootCmd.AddCommand(promptsCmd)
}

// prompts returns the wired prompt source, opening the configured one on
// first use.
func prompts() (promptFiles, error) {
	if promptSource != nil {
		return promptSource, nil
	}
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if _, err := loadPrompts(settings); err != nil {
		return nil, err
	}
	return promptSource, nil
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	source, err := prompts()
	if err != nil {
		return err
	}

	defaults := file.DefaultPrompts()
	cmd.Printf("Prompt directory: %s\n\n", source.Dir())
	for _, name := range source.Names() {
		prompt, err := source.Load(name)
		if err != nil {
			return fmt.Errorf("loading prompt %s: %w", name, err)
		}
		state := "default"
		if prompt != strings.TrimSpace(defaults[name]) {
			state = "edited"
		}
		cmd.Printf("  %-18s %-8s %s\n", name, state, source.Path(name))
	}
	return nil
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	source, err := prompts()
	if err != nil {
		return err
	}
	prompt, err := source.Load(args[0])
	if err != nil {
		return err
	}
	cmd.Println(prompt)
	return nil
}

func runPromptsPath(cmd *cobra.Command, args []string) error {
	source, err := prompts()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		cmd.Println(source.Dir())
		return nil
	}
	if _, err := source.Load(args[0]); err != nil {
		return err
	}
	cmd.Println(source.Path(args[0]))
	return nil
}
