package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

// LMStudio calls an LM Studio server through its OpenAI-compatible chat API.
type LMStudio struct {
	clientBase
}

// NewLMStudio creates an LM Studio backend client.
func NewLMStudio(baseURL, model string, opts ...Option) *LMStudio {
	return &LMStudio{clientBase: newClientBase(baseURL, model, opts...)}
}

func (l *LMStudio) Name() string  { return BackendLMStudio }
func (l *LMStudio) Model() string { return l.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete issues a chat completion with an optional system message.
func (l *LMStudio) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "lmstudio: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "lmstudio: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Backend: BackendLMStudio, Status: resp.StatusCode, Raw: string(respBody)}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: "empty choices"}
	}

	text := result.Choices[0].Message.Content
	prompt, completion := result.Usage.PromptTokens, result.Usage.CompletionTokens
	if prompt == 0 {
		prompt = estimateTokens(req.SystemPrompt + req.Prompt)
	}
	if completion == 0 {
		completion = estimateTokens(text)
	}

	return &CompletionResult{
		Text:             text,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels queries the OpenAI-compatible model listing.
func (l *LMStudio) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, eris.Wrap(err, "lmstudio: create request")
	}

	resp, err := l.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Backend: BackendLMStudio, Status: resp.StatusCode, Raw: string(respBody)}
	}

	var listing openAIModelsResponse
	if err := json.Unmarshal(respBody, &listing); err != nil {
		return nil, &ProviderError{Backend: BackendLMStudio, Raw: err.Error()}
	}

	models := make([]ModelInfo, 0, len(listing.Data))
	for _, m := range listing.Data {
		models = append(models, ModelInfo{Name: m.ID, Description: "LM Studio: " + m.ID})
	}
	return models, nil
}
