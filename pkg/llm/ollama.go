package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

// Ollama calls an Ollama server's generate API.
type Ollama struct {
	clientBase
}

// NewOllama creates an Ollama backend client.
func NewOllama(baseURL, model string, opts ...Option) *Ollama {
	return &Ollama{clientBase: newClientBase(baseURL, model, opts...)}
}

func (o *Ollama) Name() string  { return BackendOllama }
func (o *Ollama) Model() string { return o.model }

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete issues a non-streaming generate call.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "ollama: marshal request")
	}

	raw, err := o.post(ctx, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	var result ollamaGenerateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}

	prompt, completion := result.PromptEvalCount, result.EvalCount
	if prompt == 0 {
		prompt = estimateTokens(req.SystemPrompt + req.Prompt)
	}
	if completion == 0 {
		completion = estimateTokens(result.Response)
	}

	return &CompletionResult{
		Text:             result.Response,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels queries the server's tag listing.
func (o *Ollama) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Backend: BackendOllama, Status: resp.StatusCode, Raw: string(respBody)}
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(respBody, &tags); err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}

	models := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, ModelInfo{Name: m.Name, Description: "Ollama: " + m.Name})
	}
	return models, nil
}

func (o *Ollama) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ollama: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Backend: BackendOllama, Raw: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Backend: BackendOllama, Status: resp.StatusCode, Raw: string(respBody)}
	}
	return respBody, nil
}
