package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/store"
	"github.com/nando-support/discovery-cli/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize lifetime token usage across all diseases",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Data.Dir)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		all, err := st.AllStats()
		if err != nil {
			return eris.Wrap(err, "load stats")
		}

		var records []model.TokenUsage
		for _, s := range all {
			records = append(records, s.TokenUsage...)
		}
		summary := usage.Summarize(records)

		fmt.Printf("diseases with history: %d\n", len(all))
		fmt.Printf("llm calls:             %d\n", summary.Calls)
		fmt.Printf("prompt tokens:         %d\n", summary.PromptTokens)
		fmt.Printf("completion tokens:     %d\n", summary.CompletionTokens)
		fmt.Printf("total tokens:          %d\n\n", summary.TotalTokens)

		models := make([]string, 0, len(summary.ByModel))
		for m := range summary.ByModel {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			t := summary.ByModel[m]
			fmt.Printf("%-30s calls=%-6d total=%d\n", m, t.Calls, t.TotalTokens)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
