package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/pkg/llm"
	"github.com/nando-support/discovery-cli/pkg/search"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.CompletionResult), args.Error(1)
}

func (m *mockProvider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]llm.ModelInfo), args.Error(1)
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }

type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, bool) {
	f.calls = append(f.calls, url)
	content, ok := f.pages[url]
	return content, ok
}

type stubSearcher struct {
	hits []search.Result
}

func (s *stubSearcher) Collect(_ context.Context, _ []string) []search.Result {
	return s.hits
}

// promptMatcher matches completion requests whose prompt contains the given
// substring, distinguishing the three pipeline stages.
func promptMatcher(substr string) interface{} {
	return mock.MatchedBy(func(req llm.CompletionRequest) bool {
		return strings.Contains(req.Prompt, substr)
	})
}

func completion(text string, prompt, comp int) *llm.CompletionResult {
	return &llm.CompletionResult{Text: text, PromptTokens: prompt, CompletionTokens: comp}
}

func testDisease() model.DiseaseRecord {
	return model.DiseaseRecord{ID: "NANDO:1200964", NameJa: "筋ジストロフィー", NameEn: "muscular dystrophy"}
}

func testSearchConfig(twoStep bool) model.SearchConfig {
	return model.SearchConfig{
		DiseaseID: "NANDO:1200964",
		Terms: []model.SearchTerm{
			{ID: "t1", Term: "筋ジストロフィー", Language: "ja", Role: model.TermRolePatient, Enabled: true},
		},
		UseApproximateMatching: true,
		TwoStepValidation:      twoStep,
	}
}

const (
	matchYes = `{"is_match": true, "confidence": 0.9, "matched_terms": ["筋ジストロフィー"], "reason": "患者会のサイト"}`

	extractResp = `{
  "name": "日本筋ジストロフィー協会",
  "organization_type": "患者会",
  "contact_info": "info@example.org",
  "activities": "患者と家族の交流会、療養相談",
  "disease_specificity": 0.95,
  "extraction_confidence": 0.85
}`

	verifyOK = `{"verification_result": true, "verification_score": 0.9, "verification_notes": "一致"}`
)

func TestDiscoverTwoStepHappyPath(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchYes, 100, 20), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
		Return(completion(extractResp, 200, 60), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を検証")).
		Return(completion(verifyOK, 150, 30), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{
		"https://md-kyokai.example.org": "タイトル: 日本筋ジストロフィー協会\n\n本文:\n患者会の活動案内",
	}}
	searcher := &stubSearcher{hits: []search.Result{
		{Title: "日本筋ジストロフィー協会", URL: "https://md-kyokai.example.org"},
	}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	require.Len(t, res.Organizations, 1)
	org := res.Organizations[0]
	assert.Equal(t, "日本筋ジストロフィー協会", org.Name)
	assert.Equal(t, model.OrgTypePatient, org.Type)
	assert.Equal(t, model.StatusVerified, org.Status)
	assert.InDelta(t, 0.9, org.ValidationScore, 1e-9)
	assert.Equal(t, "auto", org.Source)

	// One usage record per stage, attached to the organization and reported
	// at the pass level.
	require.Len(t, org.TokenUsage, 3)
	require.Len(t, res.TokenUsage, 3)
	for _, u := range res.TokenUsage {
		assert.Equal(t, u.PromptTokens+u.CompletionTokens, u.TotalTokens)
	}
	provider.AssertExpectations(t)
}

func TestDiscoverSingleStepSkipsVerification(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchYes, 100, 20), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
		Return(completion(extractResp, 200, 60), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(false))

	require.Len(t, res.Organizations, 1)
	assert.Equal(t, model.StatusExtracted, res.Organizations[0].Status)
	assert.Len(t, res.TokenUsage, 2)
	provider.AssertExpectations(t)
}

func TestDiscoverMatchThresholdBoundary(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		accepted   bool
	}{
		{"at threshold rejected", 0.5, false},
		{"just above accepted", 0.51, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matchResp := fmt.Sprintf(`{"is_match": true, "confidence": %g}`, tc.confidence)
			provider := new(mockProvider)
			provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
				Return(completion(matchResp, 100, 20), nil).Once()
			if tc.accepted {
				provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
					Return(completion(extractResp, 200, 60), nil).Once()
				provider.On("Complete", mock.Anything, promptMatcher("情報を検証")).
					Return(completion(verifyOK, 150, 30), nil).Once()
			}

			fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
			searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

			engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
			res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

			if tc.accepted {
				assert.Len(t, res.Organizations, 1)
			} else {
				assert.Empty(t, res.Organizations)
				// The match call still happened and was accounted for.
				assert.Len(t, res.TokenUsage, 1)
			}
			provider.AssertExpectations(t)
		})
	}
}

func TestDiscoverSingleStepThresholdBoundary(t *testing.T) {
	// Single-step mode trades the verification call for a stricter bar: a
	// confidence that clears 0.5 but not 0.6 is rejected.
	matchResp := `{"is_match": true, "confidence": 0.55}`
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchResp, 100, 20), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(false))

	assert.Empty(t, res.Organizations)
	assert.Len(t, res.TokenUsage, 1)
	provider.AssertExpectations(t)
}

func TestDiscoverStrictMatchingTightensPrompt(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("近似一致は無効")).
		Return(completion(`{"is_match": false, "confidence": 0.2}`, 100, 20), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	sc := testSearchConfig(true)
	sc.UseApproximateMatching = false

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), sc)

	assert.Empty(t, res.Organizations)
	provider.AssertExpectations(t)
}

func TestDiscoverDenylistedURLSkipsEverything(t *testing.T) {
	provider := new(mockProvider)
	fetcher := &stubFetcher{pages: map[string]string{}}
	searcher := &stubSearcher{hits: []search.Result{
		{URL: "https://www.facebook.com/somegroup"},
		{URL: "https://twitter.com/someone"},
	}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations)
	assert.Empty(t, res.TokenUsage, "denylisted URLs must not reach the model")
	assert.Empty(t, fetcher.calls, "denylisted URLs must not be fetched")
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestDiscoverFetchFailureSkipsURL(t *testing.T) {
	provider := new(mockProvider)
	fetcher := &stubFetcher{pages: map[string]string{}} // every fetch misses
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://down.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations)
	assert.Empty(t, res.TokenUsage)
	assert.Equal(t, 1, res.URLsSeen)
}

func TestDiscoverProviderErrorYieldsZeroUsage(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("connection refused")).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations)
	// The failed attempt still produces exactly one zero-valued record.
	require.Len(t, res.TokenUsage, 1)
	assert.Zero(t, res.TokenUsage[0].TotalTokens)
	assert.Equal(t, "mock-model", res.TokenUsage[0].Model)
}

func TestDiscoverUnparseableExtractionSkipsURL(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchYes, 100, 20), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
		Return(completion("この組織は患者会のようですが詳細は不明です。", 200, 40), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations, "no record is fabricated from unparseable extraction")
	assert.Len(t, res.TokenUsage, 2, "both attempted calls are accounted for")
	provider.AssertExpectations(t)
}

func TestDiscoverMatchHeuristicFallback(t *testing.T) {
	// Prose answer with no JSON: the keyword heuristic applies with a 0.5
	// default confidence, which does not clear the two-step threshold.
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion("はい、is_match: true と判断します。", 100, 20), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations)
	assert.Len(t, res.TokenUsage, 1)
	provider.AssertExpectations(t)
}

func TestDiscoverVerificationCorrectionsApplied(t *testing.T) {
	verifyCorrected := `{
  "verification_result": false,
  "verification_score": 0.7,
  "corrected_name": "全国筋ジストロフィー家族の会",
  "corrected_organization_type": "家族会",
  "corrected_disease_specificity": 0.8,
  "verification_notes": "名称が不正確"
}`
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchYes, 100, 20), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
		Return(completion(extractResp, 200, 60), nil).Once()
	provider.On("Complete", mock.Anything, promptMatcher("情報を検証")).
		Return(completion(verifyCorrected, 150, 30), nil).Once()

	fetcher := &stubFetcher{pages: map[string]string{"https://a.example.org": "本文"}}
	searcher := &stubSearcher{hits: []search.Result{{URL: "https://a.example.org"}}}

	engine := NewEngine(provider, fetcher, searcher, DefaultConfig())
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	require.Len(t, res.Organizations, 1)
	org := res.Organizations[0]
	assert.Equal(t, "全国筋ジストロフィー家族の会", org.Name)
	assert.Equal(t, model.OrgTypeFamily, org.Type)
	assert.InDelta(t, 0.8, org.DiseaseSpecificity, 1e-9)
	assert.Equal(t, model.StatusVerified, org.Status)
	assert.Equal(t, "名称が不正確", org.ValidationNotes)
}

func TestDiscoverStopsAtMaxResults(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, promptMatcher("かどうかを判断")).
		Return(completion(matchYes, 100, 20), nil)
	provider.On("Complete", mock.Anything, promptMatcher("情報を抽出")).
		Return(completion(extractResp, 200, 60), nil)
	provider.On("Complete", mock.Anything, promptMatcher("情報を検証")).
		Return(completion(verifyOK, 150, 30), nil)

	pages := map[string]string{}
	var hits []search.Result
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://org%d.example.org", i)
		pages[url] = "本文"
		hits = append(hits, search.Result{URL: url})
	}
	fetcher := &stubFetcher{pages: pages}
	searcher := &stubSearcher{hits: hits}

	cfg := DefaultConfig()
	cfg.MaxResults = 2
	engine := NewEngine(provider, fetcher, searcher, cfg)
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Len(t, res.Organizations, 2)
	assert.Equal(t, 2, res.URLsSeen)
}

func TestDiscoverURLBudgetBoundsFailures(t *testing.T) {
	// Every URL fails the match check: processing stops after 2×MaxResults
	// URLs even though nothing was accepted.
	provider := new(mockProvider)
	provider.On("Complete", mock.Anything, mock.Anything).
		Return(completion(`{"is_match": false, "confidence": 0.1}`, 100, 10), nil)

	pages := map[string]string{}
	var hits []search.Result
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("https://org%d.example.org", i)
		pages[url] = "本文"
		hits = append(hits, search.Result{URL: url})
	}
	fetcher := &stubFetcher{pages: pages}
	searcher := &stubSearcher{hits: hits}

	cfg := DefaultConfig()
	cfg.MaxResults = 3
	engine := NewEngine(provider, fetcher, searcher, cfg)
	res := engine.Discover(context.Background(), testDisease(), testSearchConfig(true))

	assert.Empty(t, res.Organizations)
	assert.Equal(t, 6, res.URLsSeen)
	assert.Len(t, res.TokenUsage, 6)
}
