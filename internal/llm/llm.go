package llm

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// NewClient creates a client for an OpenAI-compatible runtime. Ollama serves
// the compatible API under /v1 and ignores the API key, but the client
// library requires one.
func NewClient(host string) Client {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(host, "/") + "/v1"
	return &api{client: openai.NewClientWithConfig(cfg)}
}

// api adapts *openai.Client to the Client interface: the concrete stream
// return type does not match the ChunkStream signature directly.
type api struct {
	client *openai.Client
}

func (a *api) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, req)
}

func (a *api) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChunkStream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
