package llm

import "context"

// fallbackCatalog is the advisory model list returned when a backend's
// listing endpoint is unreachable.
var fallbackCatalog = map[string][]ModelInfo{
	BackendOllama: {
		{Name: "mistral:latest", Description: "Ollama: mistral:latest"},
		{Name: "llama3:latest", Description: "Ollama: llama3:latest"},
		{Name: "qwen2.5:14b", Description: "Ollama: qwen2.5:14b"},
	},
	BackendLMStudio: {
		{Name: "qwen/qwen3-30b-a3b", Description: "LM Studio: qwen/qwen3-30b-a3b"},
		{Name: "mistralai/mistral-small", Description: "LM Studio: mistralai/mistral-small"},
	},
	BackendLlamaCpp: {
		{Name: "default", Description: "llama.cpp: loaded model"},
	},
	BackendMLX: {
		{Name: "mlx-community/Qwen2.5-14B-Instruct-4bit", Description: "MLX: mlx-community/Qwen2.5-14B-Instruct-4bit"},
		{Name: "mlx-community/Meta-Llama-3.1-8B-Instruct-4bit", Description: "MLX: mlx-community/Meta-Llama-3.1-8B-Instruct-4bit"},
	},
}

// AvailableModels lists a backend's models, degrading to a static fallback
// catalog when the listing call fails. Model listing is advisory, so a dead
// backend should not propagate an error to the caller.
func AvailableModels(ctx context.Context, p Provider) []ModelInfo {
	models, err := p.ListModels(ctx)
	if err == nil && len(models) > 0 {
		return models
	}
	if fb, ok := fallbackCatalog[p.Name()]; ok {
		return fb
	}
	return []ModelInfo{{Name: p.Model(), Description: p.Name() + ": " + p.Model()}}
}
