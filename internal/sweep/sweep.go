// Package sweep coordinates discovery passes over many diseases: single
// on-demand updates and full-catalog background sweeps with persistent
// per-disease checkpoints.
package sweep

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nando-support/discovery-cli/internal/collection"
	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/pipeline"
	"github.com/nando-support/discovery-cli/internal/planner"
	"github.com/nando-support/discovery-cli/internal/store"
	"github.com/nando-support/discovery-cli/internal/usage"
)

// Discoverer runs one discovery pass for a disease under its search config.
type Discoverer interface {
	Discover(ctx context.Context, disease model.DiseaseRecord, cfg model.SearchConfig) *pipeline.DiscoverResult
}

// Runner executes discovery passes and persists their results. At most one
// full sweep runs at a time; single-disease updates are not serialized.
type Runner struct {
	store      *store.Store
	engine     Discoverer
	ledger     *usage.Ledger
	batchSize  int
	batchPause time.Duration
	reg        *registry
}

// NewRunner creates a Runner. batchSize bounds concurrent diseases within a
// sweep; batchPause is the idle gap between batches.
func NewRunner(st *store.Store, engine Discoverer, ledger *usage.Ledger, batchSize int, batchPause time.Duration) *Runner {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Runner{
		store:      st,
		engine:     engine,
		ledger:     ledger,
		batchSize:  batchSize,
		batchPause: batchPause,
		reg:        newRegistry(),
	}
}

// SearchAndUpdate runs one discovery pass for a disease and checkpoints the
// merged collection and refreshed stats before returning. A missing search
// config is seeded with defaults and persisted.
func (r *Runner) SearchAndUpdate(ctx context.Context, disease model.DiseaseRecord) (*model.SearchStats, error) {
	cfg, err := r.store.LoadSearchConfig(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		seeded := planner.DefaultConfig(disease)
		cfg = &seeded
		if err := r.store.SaveSearchConfig(cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	res := r.engine.Discover(ctx, disease, *cfg)
	r.ledger.RecordAll(res.TokenUsage)

	col, err := r.store.LoadCollection(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		col = &model.OrganizationCollection{DiseaseID: disease.ID, DiseaseName: disease.NameJa}
	} else if err != nil {
		return nil, err
	}

	merged := collection.Merge(col, res.Organizations)
	col.TokenUsage = append(col.TokenUsage, res.TokenUsage...)
	col.LastUpdated = time.Now()
	if err := r.store.SaveCollection(col); err != nil {
		return nil, err
	}

	stats, err := r.store.LoadStats(disease.ID)
	if eris.Is(err, store.ErrNotFound) {
		stats = &model.SearchStats{DiseaseID: disease.ID, DiseaseName: disease.NameJa}
	} else if err != nil {
		return nil, err
	}

	stats.SearchCount++
	stats.LastSearched = time.Now()
	stats.MatchesFound += len(res.Organizations)
	stats.SearchTermsUsed = res.QueriesRun
	stats.TokenUsage = append(stats.TokenUsage, res.TokenUsage...)
	counts := model.CountByStatus(col.Organizations)
	stats.VerifiedCount = counts[model.StatusVerified]
	stats.ApprovedCount = counts[model.StatusHumanApproved]
	stats.RejectedCount = counts[model.StatusRejected]
	stats.OrganizationStats = model.ComputeOrganizationStats(col)
	if err := r.store.SaveStats(stats); err != nil {
		return nil, err
	}

	zap.L().Info("sweep: disease updated",
		zap.String("disease", disease.ID),
		zap.Int("organizations_found", len(res.Organizations)),
		zap.Int("added", merged.Added),
		zap.Int("updated", merged.Updated),
		zap.Int("llm_calls", len(res.TokenUsage)),
	)
	return stats, nil
}

// StartSweep launches a background sweep over the given diseases and returns
// its job snapshot. ErrSweepRunning is returned, with the active job, when a
// sweep is already in flight.
func (r *Runner) StartSweep(diseases []model.DiseaseRecord) (Job, error) {
	ctx, cancel := context.WithCancel(context.Background())
	job, err := r.reg.begin(len(diseases), cancel)
	if err != nil {
		cancel()
		return job, err
	}
	go r.runSweep(ctx, cancel, job.ID, diseases)
	return job, nil
}

// runSweep processes diseases in fixed-size concurrent batches. A failed
// disease is counted and skipped; only cancellation stops the sweep early.
// Results are checkpointed per disease, so an interrupted sweep keeps
// everything processed so far.
func (r *Runner) runSweep(ctx context.Context, cancel context.CancelFunc, jobID string, diseases []model.DiseaseRecord) {
	defer cancel()

	for start := 0; start < len(diseases); start += r.batchSize {
		if ctx.Err() != nil {
			r.reg.finish(jobID, JobCanceled, "")
			zap.L().Info("sweep: canceled", zap.String("job", jobID))
			return
		}

		end := start + r.batchSize
		if end > len(diseases) {
			end = len(diseases)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, disease := range diseases[start:end] {
			disease := disease
			g.Go(func() error {
				r.reg.working(jobID, disease.ID)
				_, err := r.SearchAndUpdate(gctx, disease)
				if err != nil {
					zap.L().Warn("sweep: disease failed",
						zap.String("disease", disease.ID), zap.Error(err))
				}
				r.reg.progress(jobID, disease.ID, err != nil)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never return errors

		if end < len(diseases) && r.batchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.batchPause):
			}
		}
	}

	if ctx.Err() != nil {
		r.reg.finish(jobID, JobCanceled, "")
		return
	}
	r.reg.finish(jobID, JobCompleted, "")
	zap.L().Info("sweep: completed", zap.String("job", jobID), zap.Int("diseases", len(diseases)))
}

// CancelSweep requests cancellation of the running sweep. Returns false when
// no sweep is active.
func (r *Runner) CancelSweep() bool {
	return r.reg.cancelActive()
}

// Job returns a snapshot of the job with the given ID.
func (r *Runner) Job(id string) (Job, bool) {
	return r.reg.job(id)
}

// ActiveJob returns the currently running sweep, if any.
func (r *Runner) ActiveJob() (Job, bool) {
	return r.reg.activeJob()
}

// Jobs returns snapshots of all jobs in start order.
func (r *Runner) Jobs() []Job {
	return r.reg.all()
}
