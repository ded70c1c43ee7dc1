// Package websearch runs planned queries against the external search
// endpoint and collects deduplicated candidate URLs.
package websearch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nando-support/discovery-cli/internal/resilience"
	"github.com/nando-support/discovery-cli/pkg/search"
)

// Searcher paces and retries calls to the search endpoint. The endpoint is
// shared and rate-limited, so queries are throttled rather than parallelized.
type Searcher struct {
	client  search.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a Searcher. queriesPerSecond bounds the sustained query rate;
// retries is the number of extra attempts per failed query.
func New(client search.Client, queriesPerSecond float64, retries int) *Searcher {
	if queriesPerSecond <= 0 {
		queriesPerSecond = 1
	}
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = retries + 1
	return &Searcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(queriesPerSecond), 1),
		retry:   cfg,
	}
}

// Collect runs every query in order and returns the combined results with
// duplicate URLs removed, first seen wins. Failed queries contribute nothing;
// an empty result list is a normal outcome, not an error.
func (s *Searcher) Collect(ctx context.Context, queries []string) []search.Result {
	var collected []search.Result
	seen := make(map[string]bool)

	for _, query := range queries {
		if err := s.limiter.Wait(ctx); err != nil {
			return collected
		}

		var results []search.Result
		err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
			var callErr error
			results, callErr = s.client.Search(ctx, query)
			return callErr
		})
		if err != nil {
			zap.L().Warn("websearch: query failed", zap.String("query", query), zap.Error(err))
			continue
		}

		for _, r := range results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			collected = append(collected, r)
		}
	}
	return collected
}
