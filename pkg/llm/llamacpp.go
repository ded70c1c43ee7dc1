package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

// LlamaCpp calls a llama.cpp server's native completion endpoint. The server
// hosts a single model, so the configured model name is advisory.
type LlamaCpp struct {
	clientBase
}

// NewLlamaCpp creates a llama.cpp backend client.
func NewLlamaCpp(baseURL, model string, opts ...Option) *LlamaCpp {
	return &LlamaCpp{clientBase: newClientBase(baseURL, model, opts...)}
}

func (l *LlamaCpp) Name() string  { return BackendLlamaCpp }
func (l *LlamaCpp) Model() string { return l.model }

type llamaCppRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	NPredict     int     `json:"n_predict,omitempty"`
	Stream       bool    `json:"stream"`
}

type llamaCppResponse struct {
	Content         string `json:"content"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	TokensPredicted int    `json:"tokens_predicted"`
}

// Complete issues a non-streaming completion call.
func (l *LlamaCpp) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	body, err := json.Marshal(llamaCppRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		NPredict:     req.MaxTokens,
		Stream:       false,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llamacpp: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "llamacpp: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLlamaCpp, Raw: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLlamaCpp, Raw: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Backend: BackendLlamaCpp, Status: resp.StatusCode, Raw: string(respBody)}
	}

	var result llamaCppResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Backend: BackendLlamaCpp, Raw: err.Error()}
	}

	prompt, completion := result.TokensEvaluated, result.TokensPredicted
	if prompt == 0 {
		prompt = estimateTokens(req.SystemPrompt + req.Prompt)
	}
	if completion == 0 {
		completion = estimateTokens(result.Content)
	}

	return &CompletionResult{
		Text:             result.Content,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// ListModels reports the single configured model; llama.cpp serves one model
// per process and has no listing endpoint worth querying.
func (l *LlamaCpp) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: l.model, Description: "llama.cpp: " + l.model}}, nil
}
