package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

func TestNewLLMService_Defaults(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	require.Error(t, err)

	svc, err := NewLLMService(LLMConfig{APIKey: "sk", Timeout: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, 30*time.Second, svc.client.Timeout)
}

func TestLLMService_Generate(t *testing.T) {
	tests := []struct {
		name         string
		opts         driven.GenerateOptions
		wantMessages int
		wantMax      bool
	}{
		{
			name:         "with system prompt",
			opts:         driven.GenerateOptions{MaxTokens: 3500, Temperature: 0.4, System: "You are a Response Generator Agent."},
			wantMessages: 2,
			wantMax:      true,
		},
		{
			name:         "prompt only",
			opts:         driven.GenerateOptions{},
			wantMessages: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# Draft"},"finish_reason":"stop"}]}`))
			}))
			defer server.Close()

			svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-4o"})
			require.NoError(t, err)

			reply, err := svc.Generate(context.Background(), "Write the draft", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "# Draft", reply)

			assert.Equal(t, "gpt-4o", got["model"])
			assert.InDelta(t, tt.opts.Temperature, got["temperature"], 1e-9)
			_, hasMax := got["max_tokens"]
			assert.Equal(t, tt.wantMax, hasMax)

			messages, ok := got["messages"].([]any)
			require.True(t, ok)
			require.Len(t, messages, tt.wantMessages)
			last, ok := messages[len(messages)-1].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "user", last["role"])
			assert.Equal(t, "Write the draft", last["content"])
			if tt.wantMessages == 2 {
				first, ok := messages[0].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "system", first["role"])
				assert.Equal(t, tt.opts.System, first["content"])
			}
		})
	}
}

func TestLLMService_Generate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit reached","type":"requests"}}`,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Rate limit reached",
		},
		{
			name:       "server error without JSON",
			status:     http.StatusInternalServerError,
			body:       "upstream exploded",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "upstream exploded",
		},
		{
			name:    "error in success body",
			status:  http.StatusOK,
			body:    `{"error":{"message":"model overloaded"}}`,
			wantMsg: "openai: model overloaded",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantMsg: "openai: no response choices returned",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = svc.Generate(context.Background(), "hi", driven.GenerateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			if tt.wantStatus == 0 {
				assert.NotErrorIs(t, err, domain.ErrUpstream)
				return
			}
			var upstream *domain.UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tt.wantStatus, upstream.StatusCode)
			assert.Equal(t, providerName, upstream.Provider)
		})
	}
}

func TestLLMService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, err := NewLLMService(LLMConfig{APIKey: "good", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewLLMService(LLMConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	err = bad.Ping(context.Background())
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.Equal(t, "Incorrect API key provided", upstream.Body)
}

func TestLLMService_Ping_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: url})
	require.NoError(t, err)
	err = svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: ping failed")
}
