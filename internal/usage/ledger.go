// Package usage accumulates token consumption across LLM calls for cost
// observability.
package usage

import (
	"sync"

	"github.com/nando-support/discovery-cli/internal/model"
)

// Ledger is an append-only accumulator of TokenUsage records. Every LLM call
// attempt, success or failure, must land exactly one record here.
type Ledger struct {
	mu      sync.Mutex
	records []model.TokenUsage
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends one usage record.
func (l *Ledger) Record(u model.TokenUsage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, u)
}

// RecordAll appends a batch of usage records.
func (l *Ledger) RecordAll(us []model.TokenUsage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, us...)
}

// Records returns a copy of the accumulated records.
func (l *Ledger) Records() []model.TokenUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.TokenUsage, len(l.records))
	copy(out, l.records)
	return out
}

// Summary returns aggregate counts for the ledger's records.
func (l *Ledger) Summary() Summary {
	return Summarize(l.Records())
}

// ModelTotals aggregates counts for one model.
type ModelTotals struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	Calls            int `json:"calls"`
}

// Summary aggregates usage globally and per model.
type Summary struct {
	Calls            int                    `json:"calls"`
	PromptTokens     int                    `json:"total_prompt_tokens"`
	CompletionTokens int                    `json:"total_completion_tokens"`
	TotalTokens      int                    `json:"total_tokens"`
	ByModel          map[string]ModelTotals `json:"by_model"`
}

// Summarize computes aggregate totals over any set of usage records.
func Summarize(records []model.TokenUsage) Summary {
	s := Summary{ByModel: make(map[string]ModelTotals)}
	for _, u := range records {
		s.Calls++
		s.PromptTokens += u.PromptTokens
		s.CompletionTokens += u.CompletionTokens
		s.TotalTokens += u.TotalTokens

		m := s.ByModel[u.Model]
		m.PromptTokens += u.PromptTokens
		m.CompletionTokens += u.CompletionTokens
		m.TotalTokens += u.TotalTokens
		m.Calls++
		s.ByModel[u.Model] = m
	}
	return s
}
