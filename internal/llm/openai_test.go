package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ciao"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChatCompletion(t *testing.T) {
	var got map[string]any
	srv := newOpenAIServer(t, &got)

	client := NewOpenAIClient("sk-test", "", time.Second).WithEndpoint(srv.URL)
	out, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "ciao", out)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, 0.3, got["temperature"])
}

func TestOpenAIModelOverrideFromContext(t *testing.T) {
	for _, override := range []string{"gpt-4.1", "gemini-compatible-proxy"} {
		var got map[string]any
		srv := newOpenAIServer(t, &got)

		client := NewOpenAIClient("sk-test", "gpt-4o-mini", time.Second).WithEndpoint(srv.URL)
		_, err := client.ChatCompletion(WithModel(context.Background(), override), []ChatMessage{{Role: RoleUser, Content: "x"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, override, got["model"])
	}
}

func TestOpenAISurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("bad", "", time.Second).WithEndpoint(srv.URL)
	_, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "x"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
