package websearch

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nando-support/discovery-cli/pkg/search"
)

type scriptedClient struct {
	responses map[string][]search.Result
	failures  map[string]int
	calls     []string
}

func (c *scriptedClient) Search(_ context.Context, query string) ([]search.Result, error) {
	c.calls = append(c.calls, query)
	if n := c.failures[query]; n > 0 {
		c.failures[query] = n - 1
		return nil, eris.New("search: status 503")
	}
	return c.responses[query], nil
}

func TestCollectDeduplicatesFirstSeenWins(t *testing.T) {
	client := &scriptedClient{responses: map[string][]search.Result{
		"q1": {
			{Title: "協会A", URL: "https://a.example.org", Snippet: "患者会"},
			{Title: "協会B", URL: "https://b.example.org"},
		},
		"q2": {
			{Title: "協会A（再掲）", URL: "https://a.example.org"},
			{Title: "協会C", URL: "https://c.example.org"},
		},
	}}

	s := New(client, 100, 0)
	results := s.Collect(context.Background(), []string{"q1", "q2"})

	require.Len(t, results, 3)
	assert.Equal(t, "協会A", results[0].Title, "first occurrence wins")
	assert.Equal(t, "https://b.example.org", results[1].URL)
	assert.Equal(t, "https://c.example.org", results[2].URL)
}

func TestCollectSkipsFailedQueries(t *testing.T) {
	client := &scriptedClient{
		responses: map[string][]search.Result{
			"ok": {{URL: "https://a.example.org"}},
		},
		failures: map[string]int{"broken": 99},
	}

	s := New(client, 100, 0)
	results := s.Collect(context.Background(), []string{"broken", "ok"})

	require.Len(t, results, 1)
	assert.Equal(t, "https://a.example.org", results[0].URL)
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	client := &scriptedClient{
		responses: map[string][]search.Result{
			"flaky": {{URL: "https://a.example.org"}},
		},
		failures: map[string]int{"flaky": 1},
	}

	s := New(client, 100, 1)
	s.retry.InitialBackoff = 1 // keep the test fast

	results := s.Collect(context.Background(), []string{"flaky"})
	require.Len(t, results, 1)
	assert.Len(t, client.calls, 2)
}

func TestCollectDropsEmptyURLs(t *testing.T) {
	client := &scriptedClient{responses: map[string][]search.Result{
		"q": {{Title: "URLなし"}, {URL: "https://a.example.org"}},
	}}

	s := New(client, 100, 0)
	results := s.Collect(context.Background(), []string{"q"})
	require.Len(t, results, 1)
}

func TestCollectStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{responses: map[string][]search.Result{}}
	s := New(client, 100, 0)

	results := s.Collect(ctx, []string{"q1", "q2"})
	assert.Empty(t, results)
	assert.Empty(t, client.calls, "limiter wait fails before any call")
}
