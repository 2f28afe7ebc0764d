package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/Duval1703/chatbot/internal/logger"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	promptHistoryTurns = 5
)

// Turn is one prior message handed to the generator as context.
type Turn struct {
	Role    string // RoleUser or RoleAssistant
	Content string
}

// Generator produces the assistant reply for a chat turn. Implementations
// never fail; they degrade to a fallback text instead.
type Generator interface {
	Generate(ctx context.Context, message, language string, history []Turn) string
}

type ResponseGenerator struct {
	engine Engine
	opts   GenerationOptions
}

// NewResponseGenerator wraps engine, which may be nil when no model loaded.
func NewResponseGenerator(engine Engine) *ResponseGenerator {
	return &ResponseGenerator{engine: engine, opts: DefaultGenerationOptions}
}

func (g *ResponseGenerator) ModelLoaded() bool {
	return g.engine != nil
}

func (g *ResponseGenerator) Close() {
	if g.engine == nil {
		return
	}
	if err := g.engine.Close(); err != nil {
		l := logger.L()
		l.Error().Err(err).Msg("error closing LLM engine")
	}
}

func (g *ResponseGenerator) Generate(ctx context.Context, message, language string, history []Turn) (reply string) {
	lang := ResolveLanguage(language)
	if g.engine == nil {
		return lang.fallbackResponse()
	}

	l := logger.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			l.Error().Err(fmt.Errorf("%w: panic: %v", ErrUpstream, r)).Msg("generation panicked")
			reply = lang.fallbackResponse()
		}
	}()

	prompt := BuildPrompt(lang, message, history)
	raw, err := g.engine.Complete(ctx, prompt, g.opts)
	if err != nil {
		l.Error().Err(fmt.Errorf("%w: %w", ErrUpstream, err)).Str("engine", g.engine.Name()).Msg("error generating response")
		return lang.fallbackResponse()
	}

	text := strings.TrimSpace(raw)
	if NeedsMedicalDisclaimer(message) {
		text += "\n\n" + lang.disclaimer()
	}
	return text
}

// BuildPrompt renders the system preamble, the last few history turns and
// the live message into a single completion prompt.
func BuildPrompt(lang Language, message string, history []Turn) string {
	var b strings.Builder
	b.WriteString("System: ")
	b.WriteString(lang.systemPrompt())
	b.WriteString("\n\n")

	if len(history) > promptHistoryTurns {
		history = history[len(history)-promptHistoryTurns:]
	}
	for _, turn := range history {
		role := "Assistant"
		if turn.Role == RoleUser {
			role = "Human"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
	}

	fmt.Fprintf(&b, "Human: %s\nAssistant:", message)
	return b.String()
}
