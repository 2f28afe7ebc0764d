package core

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEngine runs prompts against a model served by a local Ollama daemon.
type OllamaEngine struct {
	llm       llms.Model
	modelName string
}

func NewOllamaEngine(serverURL, modelName string) (*OllamaEngine, error) {
	opts := []ollama.Option{ollama.WithModel(modelName)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaEngine{llm: llm, modelName: modelName}, nil
}

func (e *OllamaEngine) Name() string {
	return "ollama/" + e.modelName
}

func (e *OllamaEngine) Close() error {
	return nil
}

func (e *OllamaEngine) Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, e.llm, prompt,
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithTemperature(opts.Temperature),
		llms.WithTopP(opts.TopP),
		llms.WithStopWords(opts.Stop),
	)
	if err != nil {
		return "", fmt.Errorf("ollama completion failed: %w", err)
	}
	return out, nil
}
