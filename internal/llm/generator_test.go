package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type fakeChunkStream struct {
	chunks []openai.ChatCompletionStreamResponse
	err    error // returned once chunks are drained, instead of io.EOF
	closed bool
}

func (s *fakeChunkStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return openai.ChatCompletionStreamResponse{}, s.err
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *fakeChunkStream) Close() error {
	s.closed = true
	return nil
}

type fakeClient struct {
	resp      openai.ChatCompletionResponse
	err       error
	stream    ChunkStream
	streamErr error
	gotReq    openai.ChatCompletionRequest
}

func (c *fakeClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.gotReq = req
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if err := ctx.Err(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return c.resp, nil
}

func (c *fakeClient) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChunkStream, error) {
	c.gotReq = req
	if c.streamErr != nil {
		return nil, c.streamErr
	}
	return c.stream, nil
}

func chunk(content string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: content}},
		},
	}
}

func TestGenerate(t *testing.T) {
	client := &fakeClient{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "hello there"}},
		},
	}}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	out, err := g.Generate(context.Background(), []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", out)
	require.Equal(t, "llama3.2:3b", client.gotReq.Model)
}

func TestGenerateFailureIsClassified(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	_, err := g.Generate(context.Background(), nil)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateEmptyResponseIsClassified(t *testing.T) {
	client := &fakeClient{}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	_, err := g.Generate(context.Background(), nil)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateTimeoutIsClassified(t *testing.T) {
	client := &fakeClient{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "too late"}},
		},
	}}
	g := NewGenerator(client, "llama3.2:3b", -time.Second)

	_, err := g.Generate(context.Background(), nil)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestStreamConcatenation(t *testing.T) {
	client := &fakeClient{stream: &fakeChunkStream{chunks: []openai.ChatCompletionStreamResponse{
		chunk("The"),
		chunk(" quick"),
		chunk(" fox"),
	}}}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	stream, err := g.Stream(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	var fragments []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		fragments = append(fragments, frag)
	}
	require.Equal(t, []string{"The", " quick", " fox"}, fragments)
	require.Equal(t, "The quick fox", strings.Join(fragments, ""))
}

func TestStreamFiltersEmptyFragments(t *testing.T) {
	client := &fakeClient{stream: &fakeChunkStream{chunks: []openai.ChatCompletionStreamResponse{
		{}, // no choices at all
		chunk(""),
		chunk("solo"),
		chunk(""),
	}}}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	stream, err := g.Stream(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	frag, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "solo", frag)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamMidStreamFailureIsClassified(t *testing.T) {
	client := &fakeClient{stream: &fakeChunkStream{
		chunks: []openai.ChatCompletionStreamResponse{chunk("partial")},
		err:    errors.New("connection reset"),
	}}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	stream, err := g.Stream(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	frag, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "partial", frag)

	_, err = stream.Recv()
	require.ErrorIs(t, err, ErrGeneration)
}

func TestStreamOpenFailureIsClassified(t *testing.T) {
	client := &fakeClient{streamErr: errors.New("no route to host")}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	_, err := g.Stream(context.Background(), nil)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestStreamCloseStopsUpstream(t *testing.T) {
	upstream := &fakeChunkStream{chunks: []openai.ChatCompletionStreamResponse{chunk("never read")}}
	client := &fakeClient{stream: upstream}
	g := NewGenerator(client, "llama3.2:3b", time.Minute)

	stream, err := g.Stream(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.True(t, upstream.closed)
}
