package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/sweep"
)

var sweepDiseaseIDs []string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a discovery sweep over the catalog",
	Long:  "Processes every disease in the catalog (or the given subset) in batches, checkpointing each disease's results as it completes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv()
		if err != nil {
			return err
		}

		var diseases []model.DiseaseRecord
		if len(sweepDiseaseIDs) > 0 {
			for _, id := range sweepDiseaseIDs {
				disease, ok := e.catalog.GetByID(id)
				if !ok {
					return eris.Errorf("disease not found in catalog: %s", id)
				}
				diseases = append(diseases, disease)
			}
		} else {
			diseases = e.catalog.GetAll()
		}

		job, err := e.runner.StartSweep(diseases)
		if err != nil {
			return eris.Wrap(err, "start sweep")
		}
		zap.L().Info("sweep started",
			zap.String("job", job.ID),
			zap.Int("diseases", len(diseases)),
		)

		// Foreground mode: poll until the job reaches a terminal state.
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				e.runner.CancelSweep()
			case <-ticker.C:
			}

			j, ok := e.runner.Job(job.ID)
			if !ok {
				return eris.New("sweep job disappeared")
			}
			if j.Status != sweep.JobRunning {
				summary := e.ledger.Summary()
				zap.L().Info("sweep finished",
					zap.String("status", string(j.Status)),
					zap.Int("processed", j.Processed),
					zap.Int("succeeded", j.Succeeded),
					zap.Int("failed", j.Failed),
					zap.Int("llm_calls", summary.Calls),
					zap.Int("total_tokens", summary.TotalTokens),
				)
				return nil
			}
			zap.L().Info("sweep progress",
				zap.Int("processed", j.Processed),
				zap.Int("total", j.Total),
				zap.String("current", j.CurrentDisease),
			)
		}
	},
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepDiseaseIDs, "disease", nil, "disease IDs to sweep (default: entire catalog)")
	rootCmd.AddCommand(sweepCmd)
}
