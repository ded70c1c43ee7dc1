// Package pipeline implements the relevance and extraction engine: the
// staged LLM orchestration that turns searched URLs into validated
// organization candidates.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nando-support/discovery-cli/internal/jsonx"
	"github.com/nando-support/discovery-cli/internal/model"
	"github.com/nando-support/discovery-cli/internal/planner"
	"github.com/nando-support/discovery-cli/pkg/llm"
	"github.com/nando-support/discovery-cli/pkg/search"
)

// Fetcher returns extracted page content for a URL. ok is false when the
// URL should be skipped.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (content string, ok bool)
}

// Searcher runs queries and returns deduplicated hits.
type Searcher interface {
	Collect(ctx context.Context, queries []string) []search.Result
}

// Config tunes the engine. Thresholds are exclusive: a confidence exactly at
// the threshold is rejected.
type Config struct {
	// MatchThreshold gates the match check when two-step validation runs.
	MatchThreshold float64
	// SingleStepMatchThreshold gates the match check in single-step mode,
	// which trades the verification call for a stricter entry bar.
	SingleStepMatchThreshold float64
	// MaxResults bounds accepted organizations per discovery pass. At most
	// 2×MaxResults URLs are processed, bounding worst-case LLM call volume.
	MaxResults int
	// MaxContentChars truncates page content before prompting. A lower
	// per-disease MaxTokenLimit tightens this further.
	MaxContentChars int
	Temperature     float64
	MaxTokens       int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:           0.5,
		SingleStepMatchThreshold: 0.6,
		MaxResults:               10,
		MaxContentChars:          16000,
		Temperature:              0.3,
		MaxTokens:                1000,
	}
}

// Engine runs the per-URL pipeline: denylist prefilter, fetch, match check,
// extraction, verification. Stages for one URL are strictly sequential;
// across URLs no ordering is guaranteed.
type Engine struct {
	provider llm.Provider
	fetcher  Fetcher
	searcher Searcher
	cfg      Config
}

// NewEngine creates an Engine.
func NewEngine(provider llm.Provider, fetcher Fetcher, searcher Searcher, cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = DefaultConfig().MaxContentChars
	}
	return &Engine{provider: provider, fetcher: fetcher, searcher: searcher, cfg: cfg}
}

// DiscoverResult is the outcome of one discovery pass.
type DiscoverResult struct {
	Organizations []model.ValidatedOrganization
	TokenUsage    []model.TokenUsage
	QueriesRun    []string
	URLsSeen      int
}

// pass holds the per-disease knobs resolved for one discovery pass.
type pass struct {
	terms     []model.SearchTerm
	twoStep   bool
	strict    bool
	threshold float64
	maxChars  int
}

func (e *Engine) resolvePass(sc model.SearchConfig) pass {
	p := pass{
		terms:    sc.EnabledTerms(),
		twoStep:  sc.TwoStepValidation,
		strict:   !sc.UseApproximateMatching,
		maxChars: e.cfg.MaxContentChars,
	}
	if sc.MaxTokenLimit > 0 && sc.MaxTokenLimit < p.maxChars {
		p.maxChars = sc.MaxTokenLimit
	}
	if p.twoStep {
		p.threshold = e.cfg.MatchThreshold
	} else {
		p.threshold = e.cfg.SingleStepMatchThreshold
	}
	return p
}

// Discover plans queries, searches, and pushes each candidate URL through
// the staged pipeline until MaxResults organizations are accepted or the URL
// budget is exhausted. All failures are recoverable: a URL that fails any
// stage is skipped and the pass continues.
func (e *Engine) Discover(ctx context.Context, disease model.DiseaseRecord, sc model.SearchConfig) *DiscoverResult {
	p := e.resolvePass(sc)
	res := &DiscoverResult{QueriesRun: planner.Plan(disease, p.terms)}

	hits := e.searcher.Collect(ctx, res.QueriesRun)
	urlBudget := e.cfg.MaxResults * 2

	for _, hit := range hits {
		if ctx.Err() != nil {
			break
		}
		if res.URLsSeen >= urlBudget || len(res.Organizations) >= e.cfg.MaxResults {
			break
		}
		res.URLsSeen++

		org, calls := e.processURL(ctx, hit.URL, disease, p)
		res.TokenUsage = append(res.TokenUsage, calls...)
		if org != nil {
			res.Organizations = append(res.Organizations, *org)
		}
	}

	zap.L().Info("pipeline: discovery pass complete",
		zap.String("disease", disease.ID),
		zap.Int("urls_seen", res.URLsSeen),
		zap.Int("organizations", len(res.Organizations)),
		zap.Int("llm_calls", len(res.TokenUsage)),
	)
	return res
}

// processURL runs one URL through the staged pipeline. The returned usage
// slice holds exactly one record per LLM call attempted.
func (e *Engine) processURL(ctx context.Context, rawURL string, disease model.DiseaseRecord, p pass) (*model.ValidatedOrganization, []model.TokenUsage) {
	if Denylisted(rawURL) {
		zap.L().Debug("pipeline: denylisted", zap.String("url", rawURL))
		return nil, nil
	}

	content, ok := e.fetcher.Fetch(ctx, rawURL)
	if !ok {
		return nil, nil
	}

	var calls []model.TokenUsage

	isMatch, confidence, matchUsage := e.checkMatch(ctx, content, disease.NameJa, p)
	calls = append(calls, matchUsage)

	if !isMatch || confidence <= p.threshold {
		return nil, calls
	}

	ext, extractUsage, ok := e.extract(ctx, rawURL, content, disease.NameJa, p.maxChars)
	calls = append(calls, extractUsage)
	if !ok {
		return nil, calls
	}

	if !p.twoStep {
		org := ext.toOrganization(model.StatusExtracted, ext.Confidence, "")
		org.TokenUsage = append([]model.TokenUsage(nil), calls...)
		return &org, calls
	}

	org, verifyUsage, ok := e.verify(ctx, ext, content, disease.NameJa, p.maxChars)
	calls = append(calls, verifyUsage)
	if !ok {
		return nil, calls
	}
	org.TokenUsage = append([]model.TokenUsage(nil), calls...)
	return org, calls
}

// analyze sends one content-analysis prompt and always returns a usage
// record, zero-valued on failure, so the ledger never misses a call.
func (e *Engine) analyze(ctx context.Context, content, prompt string, maxChars int) (string, model.TokenUsage) {
	if len(content) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "..."
	}
	full := fmt.Sprintf("%s\n\nウェブサイトの内容:\n%s\n\n分析結果:", prompt, content)

	result, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:       full,
		SystemPrompt: systemPrompt,
		Temperature:  e.cfg.Temperature,
		MaxTokens:    e.cfg.MaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: completion failed", zap.Error(err))
		return "", model.ZeroTokenUsage(e.provider.Model())
	}
	return result.Text, model.NewTokenUsage(e.provider.Model(), result.PromptTokens, result.CompletionTokens)
}

type matchResult struct {
	IsMatch    bool    `json:"is_match"`
	Confidence float64 `json:"confidence"`
}

// checkMatch asks whether the content relates to the disease or any enabled
// search term. Unparseable responses degrade to a keyword heuristic with a
// default mid confidence instead of failing the URL.
func (e *Engine) checkMatch(ctx context.Context, content, diseaseName string, p pass) (bool, float64, model.TokenUsage) {
	termLines := []string{"- " + diseaseName}
	for _, t := range p.terms {
		if t.Term != diseaseName {
			termLines = append(termLines, "- "+t.Term)
		}
	}

	prompt := fmt.Sprintf(matchPrompt, strings.Join(termLines, "\n"))
	if p.strict {
		prompt += "\n\n" + strictMatchNote
	}
	resp, tokenUsage := e.analyze(ctx, content, prompt, p.maxChars)
	if resp == "" {
		return false, 0, tokenUsage
	}

	var result matchResult
	if jsonx.Unmarshal(resp, &result) {
		return result.IsMatch, result.Confidence, tokenUsage
	}

	// Heuristic fallback for malformed output.
	return jsonx.Affirmative(resp, "is_match"), 0.5, tokenUsage
}

// extraction is the stage-1 structured output.
type extraction struct {
	URL                string  `json:"url"`
	Name               string  `json:"name"`
	OrganizationType   string  `json:"organization_type"`
	ContactInfo        string  `json:"contact_info"`
	Activities         string  `json:"activities"`
	DiseaseSpecificity float64 `json:"disease_specificity"`
	Confidence         float64 `json:"extraction_confidence"`
}

func (x extraction) toOrganization(status model.ValidationStatus, score float64, notes string) model.ValidatedOrganization {
	name := x.Name
	if name == "" {
		name = x.URL
	}
	return model.ValidatedOrganization{
		URL:                x.URL,
		Name:               name,
		Type:               model.OrgTypeFromLabel(x.OrganizationType),
		ContactInfo:        x.ContactInfo,
		Activities:         x.Activities,
		DiseaseSpecificity: x.DiseaseSpecificity,
		Confidence:         x.Confidence,
		Source:             "auto",
		AddedAt:            time.Now(),
		LastChecked:        time.Now(),
		Available:          true,
		Status:             status,
		ValidationScore:    score,
		ValidationNotes:    notes,
	}
}

// extract runs stage 1: structured field extraction. A response with no
// recoverable JSON object is an extraction failure — the URL is skipped, no
// record is fabricated.
func (e *Engine) extract(ctx context.Context, rawURL, content, diseaseName string, maxChars int) (extraction, model.TokenUsage, bool) {
	prompt := fmt.Sprintf(extractPrompt, diseaseName, diseaseName)
	resp, tokenUsage := e.analyze(ctx, content, prompt, maxChars)
	if resp == "" {
		return extraction{}, tokenUsage, false
	}

	var ext extraction
	if !jsonx.Unmarshal(resp, &ext) {
		zap.L().Debug("pipeline: extraction unparseable", zap.String("url", rawURL))
		return extraction{}, tokenUsage, false
	}
	ext.URL = rawURL
	return ext, tokenUsage, true
}

// verification is the stage-2 structured output. Corrected fields are only
// applied when the verifier disputes the extraction.
type verification struct {
	Result               bool     `json:"verification_result"`
	Score                float64  `json:"verification_score"`
	CorrectedName        string   `json:"corrected_name"`
	CorrectedType        string   `json:"corrected_organization_type"`
	CorrectedContactInfo string   `json:"corrected_contact_info"`
	CorrectedActivities  string   `json:"corrected_activities"`
	CorrectedSpecificity *float64 `json:"corrected_disease_specificity"`
	Notes                string   `json:"verification_notes"`
}

// verify runs stage 2: re-examination of the extraction against the same
// content. Success converts the extraction into a verified organization.
func (e *Engine) verify(ctx context.Context, ext extraction, content, diseaseName string, maxChars int) (*model.ValidatedOrganization, model.TokenUsage, bool) {
	summary, err := json.MarshalIndent(ext, "", "  ")
	if err != nil {
		return nil, model.ZeroTokenUsage(e.provider.Model()), false
	}

	prompt := fmt.Sprintf(verifyPrompt, diseaseName, string(summary))
	resp, tokenUsage := e.analyze(ctx, content, prompt, maxChars)
	if resp == "" {
		return nil, tokenUsage, false
	}

	var v verification
	if !jsonx.Unmarshal(resp, &v) {
		zap.L().Debug("pipeline: verification unparseable", zap.String("url", ext.URL))
		return nil, tokenUsage, false
	}

	if !v.Result {
		if v.CorrectedName != "" {
			ext.Name = v.CorrectedName
		}
		if v.CorrectedType != "" {
			ext.OrganizationType = v.CorrectedType
		}
		if v.CorrectedContactInfo != "" {
			ext.ContactInfo = v.CorrectedContactInfo
		}
		if v.CorrectedActivities != "" {
			ext.Activities = v.CorrectedActivities
		}
		if v.CorrectedSpecificity != nil {
			ext.DiseaseSpecificity = *v.CorrectedSpecificity
		}
	}

	org := ext.toOrganization(model.StatusVerified, v.Score, v.Notes)
	return &org, tokenUsage, true
}
