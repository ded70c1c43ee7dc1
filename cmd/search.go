package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search <disease-id>",
	Short: "Run one discovery pass for a disease",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv()
		if err != nil {
			return err
		}

		disease, ok := e.catalog.GetByID(args[0])
		if !ok {
			return eris.Errorf("disease not found in catalog: %s", args[0])
		}

		stats, err := e.runner.SearchAndUpdate(cmd.Context(), disease)
		if err != nil {
			return eris.Wrap(err, "search and update")
		}

		summary := e.ledger.Summary()
		zap.L().Info("search complete",
			zap.String("disease", disease.ID),
			zap.String("name", disease.NameJa),
			zap.Int("matches", stats.MatchesFound),
			zap.Int("verified", stats.VerifiedCount),
			zap.Int("llm_calls", summary.Calls),
			zap.Int("total_tokens", summary.TotalTokens),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
