package llm

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// MLX runs a local mlx_lm inference process per completion instead of calling
// an HTTP backend. Intended for Apple Silicon hosts where no server is
// running; each call pays process startup cost, so it is the slow path.
type MLX struct {
	model   string
	command []string
}

// MLXOption configures the MLX backend.
type MLXOption func(*MLX)

// WithCommand overrides the inference command invoked per completion.
func WithCommand(name string, args ...string) MLXOption {
	return func(m *MLX) {
		m.command = append([]string{name}, args...)
	}
}

// NewMLX creates a local-process backend that shells out to mlx_lm.
func NewMLX(model string, opts ...MLXOption) *MLX {
	m := &MLX{
		model:   model,
		command: []string{"python3", "-m", "mlx_lm.generate"},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *MLX) Name() string  { return BackendMLX }
func (m *MLX) Model() string { return m.model }

// mlxArgs builds the generate invocation. The system prompt is prepended to
// the user prompt; the CLI has no separate system slot.
func mlxArgs(model string, req CompletionRequest) []string {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Prompt
	}
	args := []string{"--model", model, "--prompt", prompt,
		"--temp", strconv.FormatFloat(req.Temperature, 'f', -1, 64)}
	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}
	return args
}

// mlx_lm.generate wraps the generation in ========== banners and appends
// stats lines like "Prompt: 25 tokens, 102.3 tokens-per-sec".
var (
	mlxBannerRe = regexp.MustCompile(`(?s)==========\n(.*?)\n==========`)
	mlxPromptRe = regexp.MustCompile(`Prompt: (\d+) tokens`)
	mlxGenRe    = regexp.MustCompile(`Generation: (\d+) tokens`)
)

// Complete runs one inference process and parses its stdout. Process
// failures surface as ProviderError with the captured stderr.
func (m *MLX) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	args := append(append([]string{}, m.command[1:]...), mlxArgs(m.model, req)...)
	cmd := exec.CommandContext(ctx, m.command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		raw := strings.TrimSpace(stderr.String())
		if raw == "" {
			raw = err.Error()
		}
		return nil, &ProviderError{Backend: BackendMLX, Raw: raw}
	}

	out := stdout.String()
	text := strings.TrimSpace(out)
	if banner := mlxBannerRe.FindStringSubmatch(out); banner != nil {
		text = strings.TrimSpace(banner[1])
	}

	prompt, completion := 0, 0
	if s := mlxPromptRe.FindStringSubmatch(out); s != nil {
		prompt, _ = strconv.Atoi(s[1])
	}
	if s := mlxGenRe.FindStringSubmatch(out); s != nil {
		completion, _ = strconv.Atoi(s[1])
	}
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

// ListModels reports the single configured model; the process loads exactly
// one model per invocation.
func (m *MLX) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: m.model, Description: "MLX: " + m.model}}, nil
}
