package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)
		require.NotNil(t, req.TopP)
		require.Equal(t, float32(0.95), *req.TopP)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"- Sleep 8 hours"}}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))
	}))
	defer server.Close()

	client := NewClient("secret", server.URL, "gpt-test", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		TopP:     float32Ptr(0.95),
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Equal(t, "- Sleep 8 hours", resp.Choices[0].Message.Content)
	require.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionMissingKey(t *testing.T) {
	client := NewClient("", "", "", 0)
	require.Equal(t, defaultModel, client.Model())
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCreateChatCompletionStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Lunch\"}}]}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient("secret", server.URL, "gpt-test", time.Second)
	stream, err := client.CreateChatCompletionStream(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)

	chunk, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "Lunch", chunk.Choices[0].Delta.Content)

	_, err = stream.Recv()
	require.True(t, errors.Is(err, io.EOF))
}

func TestCreateChatCompletionSendsZeroTemperature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "temperature")
		require.Equal(t, 0.0, body["temperature"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient("secret", server.URL, "gpt-test", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Temperature: float32Ptr(0)})
	require.NoError(t, err)
}

func TestCreateChatCompletionStreamOutlivesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Break\"}}]}\n\n"))
		flusher.Flush()
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"fast\"}}]}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient("secret", server.URL, "gpt-test", 50*time.Millisecond)
	stream, err := client.CreateChatCompletionStream(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk.Choices[0].Delta.Content)
	}
	require.Equal(t, []string{"Break", "fast"}, got)
}

func float32Ptr(v float32) *float32 { return &v }
