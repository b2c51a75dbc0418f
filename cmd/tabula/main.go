package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/tabula/internal/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabula",
		Short: "Chat with your spreadsheets",
		Long: `tabula loads CSV and Excel files and lets you inspect and edit them in
conversation. Table commands such as "상위 10개" or "salary 100000 이상" run
locally; everything else is answered by the configured chat model.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("provider", "", "completion provider: openai, vertex or mock (overrides TABULA_LLM_PROVIDER)")
	root.PersistentFlags().String("model", "", "model for new sessions (overrides TABULA_DEFAULT_MODEL)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newChatCommand())
	return root
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p := flagValue(cmd, "provider"); p != "" {
		cfg.LLMProvider = p
	}
	if m := flagValue(cmd, "model"); m != "" {
		cfg.DefaultModel = m
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
