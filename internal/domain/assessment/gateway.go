package assessment

import (
	"context"
	"errors"

	"github.com/yanqian/health-advisor/pkg/metrics"
)

// Typed failures a TextGenerator reports. Implementations wrap them with %w.
var (
	ErrMissingCredential   = errors.New("text generation credential missing")
	ErrInvalidResponse     = errors.New("text generation response invalid")
	ErrUpstreamUnavailable = errors.New("text generation upstream unavailable")
)

// GenerateRequest is a single prompt sent to the generative-text service.
type GenerateRequest struct {
	Kind     PromptKind
	Prompt   string
	Sampling Sampling
}

// Generation is the text produced for a prompt.
type Generation struct {
	Text     string             `json:"text"`
	Provider string             `json:"provider"`
	Model    string             `json:"model"`
	Usage    metrics.TokenUsage `json:"usage"`
	Cached   bool               `json:"-"`
}

// TextStream yields text deltas until io.EOF.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// TextGenerator is the AI gateway.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (Generation, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (TextStream, error)
	Provider() string
	Model() string
}
