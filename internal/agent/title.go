package agent

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/roeiex74/agno-ollama-chatbot/internal/logger"
)

const titlePrompt = "You are a title generator. Given a user message, generate a concise, " +
	"descriptive title of approximately 20 characters. " +
	"Return ONLY the title text, nothing else. " +
	"Do not use quotes or punctuation at the end unless necessary."

// Titler derives a short display title from the first user message of a
// conversation. It has its own timeout and always produces a usable title:
// on any failure it falls back to a truncation of the message itself.
type Titler struct {
	generator Generator
	timeout   time.Duration
}

func NewTitler(generator Generator, timeout time.Duration) *Titler {
	return &Titler{generator: generator, timeout: timeout}
}

// Title never fails; it returns the fallback title when generation errors
// out, times out, or yields an empty result.
func (t *Titler) Title(ctx context.Context, message string) string {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.generator.Generate(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: titlePrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Generate a title for: " + message},
	})
	if err != nil {
		logger.L.Warn("title generation failed, using fallback", "error", err)
		return fallbackTitle(message)
	}

	title := strings.Trim(strings.TrimSpace(reply), `"'`)
	if title == "" {
		return fallbackTitle(message)
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	return title
}

func fallbackTitle(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) <= 20 {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:20])) + "..."
}
