package assessment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/health-advisor/pkg/errors"
	"github.com/yanqian/health-advisor/pkg/metrics"
	"github.com/yanqian/health-advisor/pkg/util"
)

// Service exposes the assessment use cases.
type Service interface {
	Recommend(ctx context.Context, req Profile) (RecommendationResponse, error)
	DietPlan(ctx context.Context, req DietRequest) (DietPlanResponse, error)
	StreamDietPlan(ctx context.Context, req DietRequest) (<-chan DietPlanChunk, error)
}

type service struct {
	cfg       Config
	generator TextGenerator
	cache     GenerationCache
	calls     CallLogRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the assessment domain. cache and calls may be nil.
func NewService(cfg Config, generator TextGenerator, cache GenerationCache, calls CallLogRepository, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.MissingKeyFallback) == "" {
		cfg.MissingKeyFallback = DefaultMissingKeyFallback
	}
	if strings.TrimSpace(cfg.EmptyResponseFallback) == "" {
		cfg.EmptyResponseFallback = DefaultEmptyResponseFallback
	}
	return &service{
		cfg:       cfg,
		generator: generator,
		cache:     cache,
		calls:     calls,
		logger:    logger.With("component", "assessment.service"),
		now:       util.NowUTC,
	}
}

func (s *service) Recommend(ctx context.Context, req Profile) (RecommendationResponse, error) {
	start := s.now()
	summary, payload, err := assess(req, DietPreferences{})
	if err != nil {
		return RecommendationResponse{}, err
	}

	gen, err := s.generate(ctx, GenerateRequest{
		Kind:     KindRecommendations,
		Prompt:   BuildRecommendationPrompt(payload),
		Sampling: s.cfg.RecommendationSampling,
	})
	if err != nil {
		return RecommendationResponse{}, err
	}

	recommendations := ExtractRecommendations(gen.Text)
	if len(recommendations) == 0 {
		s.logger.Warn("no bulleted recommendations found in response", "length", len(gen.Text))
	}
	s.logger.Info("recommendations generated", "count", len(recommendations), "bmi_category", summary.BMI.Interpretation, "cached", gen.Cached)

	return RecommendationResponse{
		Assessment:      summary,
		Recommendations: recommendations,
		DurationMs:      util.MillisSince(start, s.now()),
		TokenUsage:      gen.Usage.Ptr(),
	}, nil
}

func (s *service) DietPlan(ctx context.Context, req DietRequest) (DietPlanResponse, error) {
	start := s.now()
	summary, payload, err := assess(req.Profile, req.DietPreferences)
	if err != nil {
		return DietPlanResponse{}, err
	}

	gen, err := s.generate(ctx, GenerateRequest{
		Kind:     KindDietPlan,
		Prompt:   BuildDietPlanPrompt(payload),
		Sampling: s.cfg.DietSampling,
	})
	if err != nil {
		return DietPlanResponse{}, err
	}
	s.logger.Info("diet plan generated", "length", len(gen.Text), "diet_type", req.DietType, "cached", gen.Cached)

	return DietPlanResponse{
		Assessment: summary,
		DietPlan:   gen.Text,
		DurationMs: util.MillisSince(start, s.now()),
		TokenUsage: gen.Usage.Ptr(),
	}, nil
}

func (s *service) StreamDietPlan(ctx context.Context, req DietRequest) (<-chan DietPlanChunk, error) {
	summary, payload, err := assess(req.Profile, req.DietPreferences)
	if err != nil {
		return nil, err
	}
	genReq := GenerateRequest{
		Kind:     KindDietPlan,
		Prompt:   BuildDietPlanPrompt(payload),
		Sampling: s.cfg.DietSampling,
	}

	started := s.now()
	stream, err := s.generator.GenerateStream(ctx, genReq)
	if err != nil {
		s.recordCall(ctx, genReq, Generation{}, err, s.now().Sub(started))
		text, fallbackErr := s.fallbackFor(err)
		if fallbackErr != nil {
			return nil, fallbackErr
		}
		out := make(chan DietPlanChunk, 1)
		out <- DietPlanChunk{Delta: text, Completed: true, Assessment: &summary}
		close(out)
		return out, nil
	}

	out := make(chan DietPlanChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		var (
			builder   strings.Builder
			streamErr error
		)
	recv:
		for {
			delta, recvErr := stream.Recv()
			if recvErr != nil {
				if !errors.Is(recvErr, io.EOF) {
					streamErr = recvErr
				}
				break
			}
			if delta == "" {
				continue
			}
			builder.WriteString(delta)
			select {
			case out <- DietPlanChunk{Delta: delta}:
			case <-ctx.Done():
				streamErr = ctx.Err()
				break recv
			}
		}

		final := DietPlanChunk{Completed: true, Assessment: &summary}
		gen := Generation{Usage: metrics.Estimate(s.generator.Model(), genReq.Prompt, builder.String())}
		if ctx.Err() != nil {
			streamErr = ctx.Err()
		}
		switch {
		case errors.Is(streamErr, context.Canceled):
			s.logger.Info("diet plan stream cancelled by client", "received", builder.Len())
			final.Error = "diet plan stream cancelled"
		case streamErr != nil:
			s.logger.Error("diet plan stream interrupted", "error", streamErr, "received", builder.Len())
			final.Error = "diet plan stream interrupted"
			streamErr = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, streamErr)
		case builder.Len() == 0:
			final.Delta = s.cfg.EmptyResponseFallback
			streamErr = fmt.Errorf("%w: empty stream", ErrInvalidResponse)
		}
		s.recordCall(ctx, genReq, gen, streamErr, s.now().Sub(started))

		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// generate resolves a prompt through the cache and the gateway, degrading
// missing credentials and unusable responses to fixed fallback text.
func (s *service) generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	key := cacheKey(req)
	if s.cacheEnabled() {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("generation cache lookup failed", "error", err)
		} else if ok {
			cached.Cached = true
			return cached, nil
		}
	}

	started := s.now()
	gen, err := s.generator.Generate(ctx, req)
	if err == nil && strings.TrimSpace(gen.Text) == "" {
		err = fmt.Errorf("%w: empty text", ErrInvalidResponse)
	}
	s.recordCall(ctx, req, gen, err, s.now().Sub(started))

	if err != nil {
		text, fallbackErr := s.fallbackFor(err)
		if fallbackErr != nil {
			return Generation{}, fallbackErr
		}
		return Generation{Text: text, Provider: s.generator.Provider(), Model: s.generator.Model()}, nil
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, gen, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("generation cache store failed", "error", err)
		}
	}
	return gen, nil
}

func (s *service) fallbackFor(err error) (string, error) {
	switch {
	case errors.Is(err, ErrMissingCredential):
		s.logger.Warn("text generation credential missing, returning fallback")
		return s.cfg.MissingKeyFallback, nil
	case errors.Is(err, ErrInvalidResponse):
		s.logger.Warn("text generation response unusable, returning fallback", "error", err)
		return s.cfg.EmptyResponseFallback, nil
	default:
		return "", apperrors.Wrap(apperrors.CodeLLMUnavailable, "text generation service unavailable", err)
	}
}

func (s *service) recordCall(ctx context.Context, req GenerateRequest, gen Generation, err error, latency time.Duration) {
	if s.calls == nil {
		return
	}
	record := CallRecord{
		ID:               uuid.New(),
		Kind:             req.Kind,
		Provider:         s.generator.Provider(),
		Model:            s.generator.Model(),
		Outcome:          outcomeOf(err),
		LatencyMs:        latency.Milliseconds(),
		PromptTokens:     gen.Usage.PromptTokens,
		CompletionTokens: gen.Usage.CompletionTokens,
		CreatedAt:        s.now(),
	}
	if appendErr := s.calls.Append(context.WithoutCancel(ctx), record); appendErr != nil {
		s.logger.Warn("call log append failed", "error", appendErr)
	}
}

func (s *service) cacheEnabled() bool {
	return s.cache != nil && s.cfg.CacheTTL > 0
}

func assess(profile Profile, prefs DietPreferences) (Assessment, Payload, error) {
	m, err := Calculate(profile)
	if err != nil {
		return Assessment{}, Payload{}, err
	}
	summary := Assessment{
		Name:    profile.Name,
		Gender:  profile.Gender,
		Height:  profile.Height,
		Weight:  profile.Weight,
		Metrics: m,
	}
	return summary, Payload{Profile: profile, DietPreferences: prefs, Metrics: m}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, ErrMissingCredential):
		return OutcomeMissingCredential
	case errors.Is(err, ErrInvalidResponse):
		return OutcomeInvalidResponse
	default:
		return OutcomeUpstreamUnavailable
	}
}

func cacheKey(req GenerateRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%g|%d|%g|%s", req.Kind, req.Sampling.Temperature, req.Sampling.TopK, req.Sampling.TopP, req.Prompt)))
	return string(req.Kind) + ":" + hex.EncodeToString(sum[:])
}
