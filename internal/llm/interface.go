package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the minimal subset of the OpenAI-compatible API the service uses;
// it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChunkStream, error)
}

// ChunkStream is the raw incremental response as the runtime delivers it.
// *openai.ChatCompletionStream satisfies it.
type ChunkStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// Stream is a single-consumption, forward-only sequence of non-empty response
// fragments. Recv returns io.EOF when the runtime signals completion and a
// GenerationFailure error if the runtime fails mid-stream. Close stops
// fragment production.
type Stream interface {
	Recv() (string, error)
	Close() error
}
