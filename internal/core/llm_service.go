package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Duval1703/chatbot/internal/logger"
)

const defaultGeminiModelName = "gemini-1.5-flash-latest"

// GenerationOptions are the sampling parameters passed to an Engine.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// DefaultGenerationOptions stop at the next turn marker or a blank line.
var DefaultGenerationOptions = GenerationOptions{
	MaxTokens:   512,
	Temperature: 0.7,
	TopP:        0.9,
	Stop:        []string{"Human:", "Assistant:", "\n\n"},
}

// Engine is a loaded language model that completes a raw prompt.
type Engine interface {
	Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
	Name() string
	Close() error
}

type EngineConfig struct {
	Backend      string // "ollama", "gemini" or "none"
	ModelPath    string // readiness sentinel only, see config.Config
	ModelName    string
	OllamaURL    string
	GeminiAPIKey string
}

// LoadEngine builds the configured engine once at startup. It returns nil
// when the model is unavailable, including when ModelPath is set but does
// not exist yet; callers then serve fallback responses.
func LoadEngine(ctx context.Context, cfg EngineConfig) Engine {
	l := logger.Ctx(ctx)

	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			l.Warn().Err(err).Str("model_path", cfg.ModelPath).Msg("model file not found, generation disabled")
			return nil
		}
	}

	var (
		engine Engine
		err    error
	)
	switch strings.ToLower(cfg.Backend) {
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaURL, cfg.ModelName)
	case "gemini":
		engine, err = NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.ModelName)
	case "none", "":
		l.Warn().Msg("no LLM backend configured, generation disabled")
		return nil
	default:
		err = fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
	if err != nil {
		l.Error().Err(err).Str("backend", cfg.Backend).Msg("failed to load model, generation disabled")
		return nil
	}

	l.Info().Str("engine", engine.Name()).Msg("model loaded")
	return engine
}

// GeminiEngine completes prompts with the hosted Gemini API.
type GeminiEngine struct {
	client    *genai.Client
	modelName string
}

func NewGeminiEngine(ctx context.Context, apiKey, modelName string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
	}
	if modelName == "" || !strings.HasPrefix(modelName, "gemini") {
		modelName = defaultGeminiModelName
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiEngine{client: client, modelName: modelName}, nil
}

func (e *GeminiEngine) Name() string {
	return "gemini/" + e.modelName
}

func (e *GeminiEngine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

func (e *GeminiEngine) Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	model := e.client.GenerativeModel(e.modelName)

	maxTokens := int32(opts.MaxTokens)
	temp := float32(opts.Temperature)
	topP := float32(opts.TopP)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
		TopP:            &topP,
		StopSequences:   opts.Stop,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	return responseText.String(), nil
}
