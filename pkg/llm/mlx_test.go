package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "generate.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestMLXCompleteParsesBannerAndStats(t *testing.T) {
	script := writeScript(t, `
echo "=========="
echo '{"is_match": true, "confidence": 0.8}'
echo "=========="
echo "Prompt: 25 tokens, 102.3 tokens-per-sec"
echo "Generation: 8 tokens, 54.1 tokens-per-sec"
`)

	p := NewMLX("mlx-community/test-model", WithCommand(script))
	res, err := p.Complete(context.Background(), CompletionRequest{Prompt: "判断してください"})
	require.NoError(t, err)

	assert.Equal(t, `{"is_match": true, "confidence": 0.8}`, res.Text)
	assert.Equal(t, 25, res.PromptTokens)
	assert.Equal(t, 8, res.CompletionTokens)
}

func TestMLXCompleteEstimatesWithoutStats(t *testing.T) {
	script := writeScript(t, `echo "plain output with no banner"`)

	p := NewMLX("m", WithCommand(script))
	res, err := p.Complete(context.Background(), CompletionRequest{Prompt: "xxxxxxxx"})
	require.NoError(t, err)

	assert.Equal(t, "plain output with no banner", res.Text)
	assert.Equal(t, estimateTokens("xxxxxxxx"), res.PromptTokens)
	assert.Equal(t, estimateTokens(res.Text), res.CompletionTokens)
}

func TestMLXCompleteProcessFailure(t *testing.T) {
	script := writeScript(t, `
echo "model not found" >&2
exit 1
`)

	p := NewMLX("m", WithCommand(script))
	_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "q"})
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, BackendMLX, pe.Backend)
	assert.Contains(t, pe.Raw, "model not found")
}

func TestMLXCompleteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewMLX("m", WithCommand(writeScript(t, `sleep 30`)))
	_, err := p.Complete(ctx, CompletionRequest{Prompt: "q"})
	require.Error(t, err)
}

func TestMLXArgs(t *testing.T) {
	args := mlxArgs("mlx-community/test-model", CompletionRequest{
		Prompt:       "user question",
		SystemPrompt: "system role",
		Temperature:  0.3,
		MaxTokens:    500,
	})

	assert.Equal(t, []string{
		"--model", "mlx-community/test-model",
		"--prompt", "system role\n\nuser question",
		"--temp", "0.3",
		"--max-tokens", "500",
	}, args)

	t.Run("no system prompt or cap", func(t *testing.T) {
		args := mlxArgs("m", CompletionRequest{Prompt: "q"})
		assert.Equal(t, []string{"--model", "m", "--prompt", "q", "--temp", "0"}, args)
	})
}

func TestMLXListModelsReportsConfigured(t *testing.T) {
	models, err := NewMLX("mlx-community/test-model").ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "mlx-community/test-model", models[0].Name)
}
