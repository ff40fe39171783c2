package assessment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/health-advisor/pkg/errors"
	"github.com/yanqian/health-advisor/pkg/metrics"
)

func TestRecommendExtractsBullets(t *testing.T) {
	gen := &stubGenerator{
		generation: Generation{
			Text:  "Fitness:\n• Walk daily\n- Lift twice a week\nDiet:\n* Eat more fiber",
			Usage: metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	calls := &stubCallLog{}
	svc := newTestService(gen, nil, calls)

	resp, err := svc.Recommend(context.Background(), testProfile())
	require.NoError(t, err)
	require.Equal(t, "Sam", resp.Name)
	require.Equal(t, 1780.0, resp.BMR)
	require.Equal(t, BMINormal, resp.BMI.Interpretation)
	require.Equal(t, []string{"Walk daily", "Lift twice a week", "Eat more fiber"}, resp.Recommendations)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 15, resp.TokenUsage.TotalTokens)

	require.Equal(t, KindRecommendations, gen.lastRequest.Kind)
	require.Equal(t, float32(0.9), gen.lastRequest.Sampling.Temperature)
	require.Contains(t, gen.lastRequest.Prompt, "BMR: 1780 kcal/day")

	require.Len(t, calls.records, 1)
	require.Equal(t, OutcomeOK, calls.records[0].Outcome)
	require.Equal(t, "stub", calls.records[0].Provider)
	require.Equal(t, 10, calls.records[0].PromptTokens)
}

func TestRecommendWithoutBulletsReturnsEmptyList(t *testing.T) {
	svc := newTestService(&stubGenerator{generation: Generation{Text: "Just keep moving."}}, nil, nil)

	resp, err := svc.Recommend(context.Background(), testProfile())
	require.NoError(t, err)
	require.NotNil(t, resp.Recommendations)
	require.Empty(t, resp.Recommendations)
}

func TestMissingCredentialFallsBack(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: no key", ErrMissingCredential)}
	calls := &stubCallLog{}
	svc := newTestService(gen, nil, calls)

	resp, err := svc.Recommend(context.Background(), testProfile())
	require.NoError(t, err)
	require.Equal(t, []string{"Gemini API key is missing."}, resp.Recommendations)
	require.Equal(t, 1780.0, resp.BMR)
	require.Nil(t, resp.TokenUsage)

	diet, err := svc.DietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)
	require.Equal(t, DefaultMissingKeyFallback, diet.DietPlan)
	require.InDelta(t, 3070.5, diet.CalorieNeeds, 1e-9)

	require.Len(t, calls.records, 2)
	require.Equal(t, OutcomeMissingCredential, calls.records[0].Outcome)
}

func TestInvalidResponseFallsBack(t *testing.T) {
	svc := newTestService(&stubGenerator{err: fmt.Errorf("%w: no candidates", ErrInvalidResponse)}, nil, nil)

	diet, err := svc.DietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)
	require.Equal(t, DefaultEmptyResponseFallback, diet.DietPlan)

	svc = newTestService(&stubGenerator{generation: Generation{Text: "   "}}, nil, nil)
	resp, err := svc.Recommend(context.Background(), testProfile())
	require.NoError(t, err)
	require.Equal(t, []string{"Unable to generate recommendations."}, resp.Recommendations)
}

func TestUpstreamFailureSurfacesTypedError(t *testing.T) {
	calls := &stubCallLog{}
	svc := newTestService(&stubGenerator{err: fmt.Errorf("%w: status=503", ErrUpstreamUnavailable)}, nil, calls)

	_, err := svc.DietPlan(context.Background(), testDietRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLMUnavailable))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Len(t, calls.records, 1)
	require.Equal(t, OutcomeUpstreamUnavailable, calls.records[0].Outcome)
}

func TestInvalidProfileSkipsGateway(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(gen, nil, nil)

	profile := testProfile()
	profile.ActivityLevel = "couch"
	_, err := svc.Recommend(context.Background(), profile)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Equal(t, 0, gen.calls)
}

func TestDietPlanUsesCache(t *testing.T) {
	gen := &stubGenerator{generation: Generation{Text: "Breakfast: oats"}}
	cache := newStubCache()
	svc := newTestService(gen, cache, nil)
	svc.cfg.CacheTTL = time.Hour

	first, err := svc.DietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)
	second, err := svc.DietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)

	require.Equal(t, "Breakfast: oats", first.DietPlan)
	require.Equal(t, first.DietPlan, second.DietPlan)
	require.Equal(t, 1, gen.calls)
	require.Len(t, cache.items, 1)
	require.Equal(t, KindDietPlan, gen.lastRequest.Kind)
	require.Equal(t, float32(0.75), gen.lastRequest.Sampling.Temperature)
}

func TestFallbackIsNotCached(t *testing.T) {
	cache := newStubCache()
	svc := newTestService(&stubGenerator{err: ErrMissingCredential}, cache, nil)
	svc.cfg.CacheTTL = time.Hour

	_, err := svc.DietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)
	require.Empty(t, cache.items)
}

func TestStreamDietPlan(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"Breakfast: ", "", "oats"}}
	calls := &stubCallLog{}
	svc := newTestService(gen, nil, calls)

	stream, err := svc.StreamDietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)

	chunks := collect(stream)
	require.Len(t, chunks, 3)
	require.Equal(t, "Breakfast: ", chunks[0].Delta)
	require.Equal(t, "oats", chunks[1].Delta)
	require.True(t, chunks[2].Completed)
	require.NotNil(t, chunks[2].Assessment)
	require.Equal(t, 1780.0, chunks[2].Assessment.BMR)
	require.Empty(t, chunks[2].Error)

	require.Len(t, calls.records, 1)
	require.Equal(t, OutcomeOK, calls.records[0].Outcome)
}

func TestStreamDietPlanMissingCredential(t *testing.T) {
	svc := newTestService(&stubGenerator{err: ErrMissingCredential}, nil, nil)

	stream, err := svc.StreamDietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)

	chunks := collect(stream)
	require.Len(t, chunks, 1)
	require.True(t, chunks[0].Completed)
	require.Equal(t, DefaultMissingKeyFallback, chunks[0].Delta)
}

func TestStreamDietPlanInterrupted(t *testing.T) {
	svc := newTestService(&stubGenerator{deltas: []string{"Breakfast"}, streamErr: errors.New("connection reset")}, nil, nil)

	stream, err := svc.StreamDietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)

	chunks := collect(stream)
	require.Len(t, chunks, 2)
	require.Equal(t, "diet plan stream interrupted", chunks[1].Error)
}

func TestStreamDietPlanClientCancelRecordsCancelled(t *testing.T) {
	calls := &stubCallLog{}
	svc := newTestService(&stubGenerator{deltas: []string{"Breakfast", "Lunch"}}, nil, calls)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.StreamDietPlan(ctx, testDietRequest())
	require.NoError(t, err)
	cancel()
	collect(stream)

	require.Len(t, calls.records, 1)
	require.Equal(t, OutcomeCancelled, calls.records[0].Outcome)
}

func TestStreamDietPlanInterruptedRecordsUpstream(t *testing.T) {
	calls := &stubCallLog{}
	svc := newTestService(&stubGenerator{deltas: []string{"Breakfast"}, streamErr: errors.New("connection reset")}, nil, calls)

	stream, err := svc.StreamDietPlan(context.Background(), testDietRequest())
	require.NoError(t, err)
	collect(stream)

	require.Len(t, calls.records, 1)
	require.Equal(t, OutcomeUpstreamUnavailable, calls.records[0].Outcome)
}

func newTestService(gen TextGenerator, cache GenerationCache, calls CallLogRepository) *service {
	svc := NewService(Config{
		RecommendationSampling: Sampling{Temperature: 0.9, TopK: 40, TopP: 0.95},
		DietSampling:           Sampling{Temperature: 0.75, TopK: 40, TopP: 0.95},
	}, gen, cache, calls, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc.(*service)
}

func testProfile() Profile {
	return Profile{Name: "Sam", Age: 30, Gender: GenderMale, Height: 180, Weight: 80, ActivityLevel: ActivityVery}
}

func testDietRequest() DietRequest {
	return DietRequest{
		Profile:         testProfile(),
		DietPreferences: DietPreferences{DietType: "vegetarian", Allergies: "peanuts"},
	}
}

func collect(stream <-chan DietPlanChunk) []DietPlanChunk {
	var out []DietPlanChunk
	for chunk := range stream {
		out = append(out, chunk)
	}
	return out
}

type stubGenerator struct {
	generation  Generation
	err         error
	deltas      []string
	streamErr   error
	calls       int
	lastRequest GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	s.calls++
	s.lastRequest = req
	if s.err != nil {
		return Generation{}, s.err
	}
	return s.generation, nil
}

func (s *stubGenerator) GenerateStream(ctx context.Context, req GenerateRequest) (TextStream, error) {
	s.calls++
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return &stubStream{deltas: s.deltas, err: s.streamErr}, nil
}

func (s *stubGenerator) Provider() string { return "stub" }

func (s *stubGenerator) Model() string { return "stub-model" }

type stubStream struct {
	deltas []string
	err    error
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.deltas) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *stubStream) Close() error { return nil }

type stubCache struct {
	items map[string]Generation
}

func newStubCache() *stubCache {
	return &stubCache{items: make(map[string]Generation)}
}

func (s *stubCache) Get(ctx context.Context, key string) (Generation, bool, error) {
	gen, ok := s.items[key]
	return gen, ok, nil
}

func (s *stubCache) Set(ctx context.Context, key string, gen Generation, ttl time.Duration) error {
	s.items[key] = gen
	return nil
}

type stubCallLog struct {
	records []CallRecord
}

func (s *stubCallLog) Append(ctx context.Context, record CallRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *stubCallLog) Recent(ctx context.Context, limit int) ([]CallRecord, error) {
	return s.records, nil
}
