package llm

import (
	"context"
	"fmt"

	"llm-tournament-widget/models"

	openai "github.com/sashabaranov/go-openai"
)

const generationSystemPrompt = "You are a helpful AI assistant. Please provide a comprehensive and well-reasoned response to the following prompt and question."

const generationMaxTokens = 1000

// TokenStream is a finite, non-restartable sequence of text increments.
// Recv returns io.EOF as the completion marker; any other error means the
// stream died and a fresh Generate call is needed.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Generator is the text-generation capability. It never retries internally;
// retry policy belongs to the caller.
type Generator interface {
	Generate(ctx context.Context, promptContent, question, model string) (TokenStream, error)
}

// OpenAIGenerator streams chat completions from the OpenAI API.
type OpenAIGenerator struct {
	Client *openai.Client
}

func NewOpenAIGenerator(client *openai.Client) *OpenAIGenerator {
	return &OpenAIGenerator{Client: client}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, promptContent, question, model string) (TokenStream, error) {
	if g.Client == nil {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", models.ErrGeneration)
	}
	if model == "" {
		model = DefaultModel
	}

	fullPrompt := fmt.Sprintf("%s\n\nQuestion: %s", promptContent, question)

	stream, err := g.Client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: generationMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fullPrompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}

	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv relays the next non-empty content delta. io.EOF passes through
// untouched as the completion marker.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
