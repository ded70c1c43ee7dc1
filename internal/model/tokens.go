package model

import "time"

// TokenUsage records token consumption for a single LLM call. Records are
// append-only; TotalTokens is always PromptTokens + CompletionTokens.
type TokenUsage struct {
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Model            string    `json:"model"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewTokenUsage builds a TokenUsage with the total invariant maintained.
func NewTokenUsage(model string, prompt, completion int) TokenUsage {
	return TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		Model:            model,
		Timestamp:        time.Now(),
	}
}

// ZeroTokenUsage records a failed LLM call attempt. Every attempt produces
// exactly one record, so failures still show up in the ledger.
func ZeroTokenUsage(model string) TokenUsage {
	return NewTokenUsage(model, 0, 0)
}
