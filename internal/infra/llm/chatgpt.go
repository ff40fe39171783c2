package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/config"
	"github.com/yanqian/health-advisor/internal/infra/llm/chatgpt"
	"github.com/yanqian/health-advisor/pkg/metrics"
)

// ChatGPTGenerator adapts the OpenAI-compatible client to the assessment gateway.
// Chat completions have no top-K parameter, so only temperature and top-P are sent.
type ChatGPTGenerator struct {
	client *chatgpt.Client
}

// NewChatGPTGenerator constructs the adapter.
func NewChatGPTGenerator(client *chatgpt.Client) *ChatGPTGenerator {
	return &ChatGPTGenerator{client: client}
}

func (g *ChatGPTGenerator) Provider() string { return config.ProviderOpenAI }

func (g *ChatGPTGenerator) Model() string { return g.client.Model() }

// Generate returns the first choice's content.
func (g *ChatGPTGenerator) Generate(ctx context.Context, req assessment.GenerateRequest) (assessment.Generation, error) {
	resp, err := g.client.CreateChatCompletion(ctx, chatRequest(req))
	if err != nil {
		return assessment.Generation{}, classifyChatGPT(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return assessment.Generation{}, fmt.Errorf("%w: no choices", assessment.ErrInvalidResponse)
	}
	text := resp.Choices[0].Message.Content

	usage := metrics.Estimate(g.Model(), req.Prompt, text)
	if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
		usage = metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return assessment.Generation{
		Text:     text,
		Provider: g.Provider(),
		Model:    g.Model(),
		Usage:    usage,
	}, nil
}

// GenerateStream streams choice deltas.
func (g *ChatGPTGenerator) GenerateStream(ctx context.Context, req assessment.GenerateRequest) (assessment.TextStream, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, chatRequest(req))
	if err != nil {
		return nil, classifyChatGPT(err)
	}
	return &chatTextStream{stream: stream}, nil
}

type chatTextStream struct {
	stream *chatgpt.ChatCompletionStream
}

func (s *chatTextStream) Recv() (string, error) {
	chunk, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, choice := range chunk.Choices {
		b.WriteString(choice.Delta.Content)
	}
	return b.String(), nil
}

func (s *chatTextStream) Close() error {
	return s.stream.Close()
}

func chatRequest(req assessment.GenerateRequest) chatgpt.ChatCompletionRequest {
	return chatgpt.ChatCompletionRequest{
		Messages:    []chatgpt.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &req.Sampling.Temperature,
		TopP:        &req.Sampling.TopP,
	}
}

func classifyChatGPT(err error) error {
	switch {
	case errors.Is(err, chatgpt.ErrMissingAPIKey):
		return fmt.Errorf("%w: %w", assessment.ErrMissingCredential, err)
	case errors.Is(err, chatgpt.ErrMalformedResponse):
		return fmt.Errorf("%w: %w", assessment.ErrInvalidResponse, err)
	default:
		return fmt.Errorf("%w: %w", assessment.ErrUpstreamUnavailable, err)
	}
}

var _ assessment.TextGenerator = (*ChatGPTGenerator)(nil)
