package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/config"
	"github.com/yanqian/health-advisor/internal/infra/llm/chatgpt"
)

var testRequest = assessment.GenerateRequest{
	Kind:     assessment.KindRecommendations,
	Prompt:   "give me tips",
	Sampling: assessment.Sampling{Temperature: 0.9, TopK: 40, TopP: 0.95},
}

func TestChatGPTGeneratorGenerate(t *testing.T) {
	server := newJSONServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"- Sleep"}}]}`)
	defer server.Close()

	gen := NewChatGPTGenerator(chatgpt.NewClient("secret", server.URL, "gpt-test", time.Second))
	out, err := gen.Generate(context.Background(), testRequest)
	require.NoError(t, err)
	require.Equal(t, "- Sleep", out.Text)
	require.Equal(t, config.ProviderOpenAI, out.Provider)
	require.True(t, out.Usage.Estimated)
}

func TestChatGPTGeneratorClassifiesFailures(t *testing.T) {
	_, err := NewChatGPTGenerator(chatgpt.NewClient("", "", "gpt-test", time.Second)).Generate(context.Background(), testRequest)
	require.ErrorIs(t, err, assessment.ErrMissingCredential)

	empty := newJSONServer(t, http.StatusOK, `{"choices":[]}`)
	defer empty.Close()
	_, err = NewChatGPTGenerator(chatgpt.NewClient("secret", empty.URL, "gpt-test", time.Second)).Generate(context.Background(), testRequest)
	require.ErrorIs(t, err, assessment.ErrInvalidResponse)

	down := newJSONServer(t, http.StatusTooManyRequests, `{}`)
	defer down.Close()
	_, err = NewChatGPTGenerator(chatgpt.NewClient("secret", down.URL, "gpt-test", time.Second)).Generate(context.Background(), testRequest)
	require.ErrorIs(t, err, assessment.ErrUpstreamUnavailable)
}

func TestChatGPTGeneratorSendsZeroTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 0.0, body["temperature"])
		require.InDelta(t, 0.95, body["top_p"], 1e-6)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"- Rest"}}]}`))
	}))
	defer server.Close()

	req := testRequest
	req.Sampling.Temperature = 0
	_, err := NewChatGPTGenerator(chatgpt.NewClient("secret", server.URL, "gpt-test", time.Second)).Generate(context.Background(), req)
	require.NoError(t, err)
}

func newJSONServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}
