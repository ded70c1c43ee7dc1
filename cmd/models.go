package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nando-support/discovery-cli/pkg/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the configured LLM backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			BaseURL:  cfg.LLM.BaseURL,
			Timeout:  time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return err
		}

		fmt.Printf("provider: %s (current model: %s)\n\n", provider.Name(), provider.Model())
		for _, m := range llm.AvailableModels(cmd.Context(), provider) {
			marker := " "
			if m.Name == provider.Model() {
				marker = "*"
			}
			fmt.Printf("%s %s", marker, m.Name)
			if m.Description != "" {
				fmt.Printf("  %s", m.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
