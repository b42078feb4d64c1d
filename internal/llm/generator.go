package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ErrGeneration classifies model runtime failures: timeouts, connection
// errors, and malformed output. Callers test for it with errors.Is.
var ErrGeneration = errors.New("generation failed")

// Generator invokes the model runtime with a full message list, either
// blocking until the complete response or streaming it fragment by fragment.
// Every call is bounded by the configured timeout.
type Generator struct {
	client  Client
	model   string
	timeout time.Duration
}

func NewGenerator(client Client, model string, timeout time.Duration) *Generator {
	return &Generator{client: client, model: model, timeout: timeout}
}

// Generate blocks until the runtime produces a complete response text.
func (g *Generator) Generate(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from model", ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens an incremental generation. The returned Stream yields the
// response as non-empty fragments whose in-order concatenation equals the
// complete response text.
func (g *Generator) Stream(ctx context.Context, messages []openai.ChatCompletionMessage) (Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	upstream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return &fragmentStream{upstream: upstream, cancel: cancel}, nil
}

type fragmentStream struct {
	upstream ChunkStream
	cancel   context.CancelFunc
}

func (s *fragmentStream) Recv() (string, error) {
	for {
		chunk, err := s.upstream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		// Chunks without content (role-only deltas, keep-alives) are
		// filtered out rather than passed through as empty fragments.
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *fragmentStream) Close() error {
	s.cancel()
	return s.upstream.Close()
}
