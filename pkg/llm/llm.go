// Package llm provides a uniform completion interface over local LLM
// backends (Ollama, LM Studio, llama.cpp server). Each backend differs only
// in request and response shape; callers see one Provider contract.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// CompletionRequest is a single completion call.
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// CompletionResult holds the completion text and the backend-reported token
// counts. Counts fall back to a length heuristic when a backend omits them.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// ModelInfo describes one model a backend can serve.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Provider is the uniform completion interface. Implementations are pure I/O
// adapters with no business logic.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Name() string
	Model() string
}

// ProviderError surfaces a backend failure (non-2xx, malformed body) without
// crashing the caller. Raw backend output is preserved for diagnosis.
type ProviderError struct {
	Backend string
	Status  int
	Raw     string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend error (status %d): %s", e.Backend, e.Status, e.Raw)
	}
	return fmt.Sprintf("%s: backend error: %s", e.Backend, e.Raw)
}

// Backend names accepted by the factory.
const (
	BackendOllama   = "ollama"
	BackendLMStudio = "lmstudio"
	BackendLlamaCpp = "llamacpp"
	BackendMLX      = "mlx"
)

// Config selects and configures a backend. Provider selection is a pure
// configuration value.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds a Provider from configuration. Unknown provider names are
// rejected eagerly with a descriptive error.
func New(cfg Config) (Provider, error) {
	var opts []Option
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	switch cfg.Provider {
	case BackendOllama:
		return NewOllama(cfg.BaseURL, cfg.Model, opts...), nil
	case BackendLMStudio:
		return NewLMStudio(cfg.BaseURL, cfg.Model, opts...), nil
	case BackendLlamaCpp:
		return NewLlamaCpp(cfg.BaseURL, cfg.Model, opts...), nil
	case BackendMLX:
		return NewMLX(cfg.Model), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q (must be one of: %s, %s, %s, %s)",
			cfg.Provider, BackendOllama, BackendLMStudio, BackendLlamaCpp, BackendMLX)
	}
}

// Option configures a backend client.
type Option func(*clientBase)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientBase) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientBase) {
		c.http.Timeout = d
	}
}

// clientBase holds state common to all backend clients.
type clientBase struct {
	baseURL string
	model   string
	http    *http.Client
}

func newClientBase(baseURL, model string, opts ...Option) clientBase {
	c := clientBase{
		baseURL: baseURL,
		model:   model,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// estimateTokens approximates a token count when the backend does not report
// one. Four characters per token is close enough for accounting.
func estimateTokens(text string) int {
	return len(text) / 4
}
