package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/config"
	"github.com/yanqian/health-advisor/pkg/metrics"
	"github.com/yanqian/health-advisor/pkg/util"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiTimeout = 60 * time.Second
)

var errGeminiKeyMissing = errors.New("gemini api key is missing")

// GeminiGenerator serves the assessment gateway through the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator builds the generator. An empty apiKey yields a generator
// whose calls fail with assessment.ErrMissingCredential.
func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration) (*GeminiGenerator, error) {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultGeminiTimeout
	}
	g := &GeminiGenerator{model: model, timeout: timeout}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  util.NewStreamingHTTPClient(timeout),
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(baseURL)},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiGenerator) Provider() string { return config.ProviderGemini }

func (g *GeminiGenerator) Model() string { return g.model }

// Generate returns the first candidate's text.
func (g *GeminiGenerator) Generate(ctx context.Context, req assessment.GenerateRequest) (assessment.Generation, error) {
	if g.client == nil {
		return assessment.Generation{}, fmt.Errorf("%w: %w", assessment.ErrMissingCredential, errGeminiKeyMissing)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), generationConfig(req.Sampling))
	if err != nil {
		return assessment.Generation{}, classifyGemini(err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		reason := "no candidates"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return assessment.Generation{}, fmt.Errorf("%w: %s", assessment.ErrInvalidResponse, reason)
	}

	usage := metrics.Estimate(g.model, req.Prompt, text)
	if meta := resp.UsageMetadata; meta != nil && meta.TotalTokenCount > 0 {
		usage = metrics.TokenUsage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return assessment.Generation{
		Text:     text,
		Provider: g.Provider(),
		Model:    g.model,
		Usage:    usage,
	}, nil
}

// GenerateStream streams candidate text deltas. The first frame is read
// eagerly so request failures surface here rather than mid-stream.
func (g *GeminiGenerator) GenerateStream(ctx context.Context, req assessment.GenerateRequest) (assessment.TextStream, error) {
	if g.client == nil {
		return nil, fmt.Errorf("%w: %w", assessment.ErrMissingCredential, errGeminiKeyMissing)
	}
	next, stop := iter.Pull2(g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt), generationConfig(req.Sampling)))
	first, err, ok := next()
	if !ok {
		stop()
		return &geminiTextStream{}, nil
	}
	if err != nil {
		stop()
		return nil, classifyGemini(err)
	}
	return &geminiTextStream{next: next, stop: stop, pending: first}, nil
}

type geminiTextStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending *genai.GenerateContentResponse
}

func (s *geminiTextStream) Recv() (string, error) {
	if s.pending != nil {
		frame := s.pending
		s.pending = nil
		return responseText(frame), nil
	}
	if s.next == nil {
		return "", io.EOF
	}
	frame, err, ok := s.next()
	if !ok {
		s.Close()
		return "", io.EOF
	}
	if err != nil {
		s.Close()
		return "", classifyGemini(err)
	}
	return responseText(frame), nil
}

func (s *geminiTextStream) Close() error {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.next = nil
	return nil
}

// generationConfig always sends every sampling field, zero values included.
func generationConfig(s assessment.Sampling) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.Temperature),
		TopK:        genai.Ptr(float32(s.TopK)),
		TopP:        genai.Ptr(s.TopP),
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	return resp.Text()
}

func classifyGemini(err error) error {
	var (
		apiErr genai.APIError
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &apiErr),
		errors.As(err, &urlErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", assessment.ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", assessment.ErrInvalidResponse, err)
	}
}

var _ assessment.TextGenerator = (*GeminiGenerator)(nil)
