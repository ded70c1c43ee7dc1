package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nando-support/discovery-cli/internal/catalog"
	"github.com/nando-support/discovery-cli/internal/fetch"
	"github.com/nando-support/discovery-cli/internal/pipeline"
	"github.com/nando-support/discovery-cli/internal/store"
	"github.com/nando-support/discovery-cli/internal/sweep"
	"github.com/nando-support/discovery-cli/internal/usage"
	"github.com/nando-support/discovery-cli/internal/websearch"
	"github.com/nando-support/discovery-cli/pkg/llm"
	"github.com/nando-support/discovery-cli/pkg/search"
)

// availabilityChecker probes whether an organization's site still answers.
type availabilityChecker interface {
	Check(ctx context.Context, url string) fetch.CheckResult
}

// env holds the wired application components shared by commands.
type env struct {
	catalog  *catalog.Catalog
	store    *store.Store
	provider llm.Provider
	runner   *sweep.Runner
	ledger   *usage.Ledger
	checker  availabilityChecker
}

func initEnv() (*env, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load disease catalog")
	}

	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	provider, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	cache, err := fetch.NewCache(filepath.Join(cfg.Data.Dir, "web_cache"))
	if err != nil {
		return nil, eris.Wrap(err, "init web cache")
	}
	fetcher := fetch.NewFetcher(cache,
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSecs)*time.Second),
		fetch.WithMaxBody(int64(cfg.Fetch.MaxBodyKB)*1024),
	)

	searcher := websearch.New(
		search.NewClient(search.WithBaseURL(cfg.Search.BaseURL)),
		cfg.Search.QueriesPerS,
		cfg.Search.Retries,
	)

	engine := pipeline.NewEngine(provider, fetcher, searcher, pipeline.Config{
		MatchThreshold:           cfg.Pipeline.MatchThreshold,
		SingleStepMatchThreshold: cfg.Pipeline.SingleStepMatchThreshold,
		MaxResults:               cfg.Pipeline.MaxResults,
		MaxContentChars:          cfg.Pipeline.MaxContentChars,
		Temperature:              cfg.LLM.Temperature,
		MaxTokens:                cfg.LLM.MaxTokens,
	})

	ledger := usage.NewLedger()
	runner := sweep.NewRunner(st, engine, ledger,
		cfg.Sweep.BatchSize,
		time.Duration(cfg.Sweep.BatchPauseSecs)*time.Second,
	)

	total, intractable, childhood := cat.Counts()
	zap.L().Info("environment ready",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.Int("diseases", total),
		zap.Int("intractable", intractable),
		zap.Int("childhood_chronic", childhood),
	)

	return &env{
		catalog:  cat,
		store:    st,
		provider: provider,
		runner:   runner,
		ledger:   ledger,
		checker:  fetcher,
	}, nil
}
