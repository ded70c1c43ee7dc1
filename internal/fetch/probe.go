package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CheckResult is one availability probe of a URL.
type CheckResult struct {
	Available      bool
	StatusCode     int
	ResponseTimeMs int64
	Error          string
}

// Check probes a URL without touching the content cache. HEAD is tried
// first; servers that refuse it get a GET with the body discarded.
// Availability means the site answered with a non-error status.
func (f *Fetcher) Check(ctx context.Context, targetURL string) CheckResult {
	start := time.Now()

	status, err := f.probe(ctx, http.MethodHead, targetURL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = f.probe(ctx, http.MethodGet, targetURL)
	}

	res := CheckResult{
		StatusCode:     status,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
		zap.L().Debug("fetch: availability probe failed", zap.String("url", targetURL), zap.Error(err))
		return res
	}
	res.Available = status < http.StatusBadRequest
	return res
}

func (f *Fetcher) probe(ctx context.Context, method, targetURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, targetURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))
	return resp.StatusCode, nil
}
