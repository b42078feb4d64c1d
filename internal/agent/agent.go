// Package agent orchestrates one conversation turn: it loads prior history,
// invokes the model runtime, and writes the completed turn back to the store.
package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/roeiex74/agno-ollama-chatbot/internal/history"
	"github.com/roeiex74/agno-ollama-chatbot/internal/llm"
	"github.com/roeiex74/agno-ollama-chatbot/internal/logger"
)

const systemPrompt = "You are a helpful AI assistant. Please respond to the user's request accurately and concisely."

// Generator is the slice of internal/llm the chatbot depends on; it is easy
// to mock in tests.
type Generator interface {
	Generate(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
	Stream(ctx context.Context, messages []openai.ChatCompletionMessage) (llm.Stream, error)
}

// Usage reports what a turn sent to the model runtime.
type Usage struct {
	Model    string `json:"model"`
	Messages int    `json:"messages"`
}

// Result is the outcome of a non-streaming turn.
type Result struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Usage          Usage  `json:"usage"`
}

// Chatbot ties conversation memory and generation together. One instance
// lives for the process lifetime and is injected into the HTTP layer.
type Chatbot struct {
	store      history.Store
	generator  Generator
	titler     *Titler // optional; nil disables title generation
	model      string
	maxHistory int
}

func New(store history.Store, generator Generator, titler *Titler, model string, maxHistory int) *Chatbot {
	return &Chatbot{
		store:      store,
		generator:  generator,
		titler:     titler,
		model:      model,
		maxHistory: maxHistory,
	}
}

// Chat processes one non-streaming turn. The turn is a single failable unit:
// if generation fails, nothing is written to history.
func (c *Chatbot) Chat(ctx context.Context, conversationID, message string) (*Result, error) {
	conversationID, isNew, msgs, err := c.prepareTurn(ctx, conversationID, message)
	if err != nil {
		return nil, err
	}

	reply, err := c.generator.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}

	if err := c.store.Append(ctx, conversationID, history.RoleUser, message); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if err := c.store.Append(ctx, conversationID, history.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}
	if err := c.store.Truncate(ctx, conversationID, c.maxHistory); err != nil {
		return nil, fmt.Errorf("truncate history: %w", err)
	}
	if isNew {
		c.assignTitle(conversationID, message)
	}

	return &Result{
		ConversationID: conversationID,
		Reply:          reply,
		Usage:          Usage{Model: c.model, Messages: len(msgs)},
	}, nil
}

// ChatStream processes one streaming turn. The user message is persisted
// before generation starts so a mid-stream failure never loses the user's
// input; the assistant reply is persisted only when the stream completes.
func (c *Chatbot) ChatStream(ctx context.Context, conversationID, message string) (*TurnStream, error) {
	conversationID, isNew, msgs, err := c.prepareTurn(ctx, conversationID, message)
	if err != nil {
		return nil, err
	}

	if err := c.store.Append(ctx, conversationID, history.RoleUser, message); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if err := c.store.Truncate(ctx, conversationID, c.maxHistory); err != nil {
		return nil, fmt.Errorf("truncate history: %w", err)
	}
	if isNew {
		c.assignTitle(conversationID, message)
	}

	upstream, err := c.generator.Stream(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return newTurnStream(c, ctx, conversationID, len(msgs), upstream), nil
}

// prepareTurn resolves the conversation ID and builds the outbound message
// list: system prompt, prior non-system history, then the new user turn.
func (c *Chatbot) prepareTurn(ctx context.Context, conversationID, message string) (string, bool, []openai.ChatCompletionMessage, error) {
	isNew := conversationID == ""
	if isNew {
		conversationID = uuid.NewString()
	}

	prior, err := c.store.Load(ctx, conversationID)
	if err != nil {
		return "", false, nil, fmt.Errorf("load history: %w", err)
	}
	if len(prior) == 0 {
		isNew = true
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(prior)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range prior {
		if m.Role == history.RoleSystem {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	return conversationID, isNew, msgs, nil
}

// assignTitle derives and stores a display title for a new conversation.
// It runs off the turn's critical path: the caller returns immediately, and
// the request context is not reused because it may already be cancelled by
// the time the title lands. The titler bounds the call with its own timeout.
// Best effort: a failure is logged, never surfaced to the turn.
func (c *Chatbot) assignTitle(conversationID, message string) {
	if c.titler == nil {
		return
	}
	go func() {
		ctx := context.Background()
		title := c.titler.Title(ctx, message)
		if err := c.store.SetTitle(ctx, conversationID, title); err != nil {
			logger.L.Warn("failed to store conversation title", "conversation_id", conversationID, "error", err)
		}
	}()
}
