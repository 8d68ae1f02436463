package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient wraps the Google Generative Language API.
type GeminiClient struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

// GeminiOption tweaks a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL points the client at another API root, mostly useful in tests.
func WithBaseURL(base string) GeminiOption {
	return func(c *GeminiClient) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		if client != nil {
			c.client = client
		}
	}
}

// NewGeminiClient constructs a Gemini client for the desired model.
func NewGeminiClient(apiKey, model string, timeout time.Duration, tokenSource oauth2.TokenSource, opts ...GeminiOption) *GeminiClient {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c := &GeminiClient{
		apiKey:      apiKey,
		model:       NormalizeModel(model),
		baseURL:     defaultGeminiBaseURL,
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletion sends conversational content to Gemini and returns the first candidate text.
func (c *GeminiClient) ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	var systemPrompts []string
	var contents []map[string]any

	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
			continue
		case RoleAssistant:
			role = "model"
		default:
			role = RoleUser
		}

		contents = append(contents, map[string]any{
			"role": role,
			"parts": []map[string]string{
				{"text": msg.Content},
			},
		})
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: missing user or assistant messages")
	}

	payload := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"temperature": temperature,
		},
	}

	if len(systemPrompts) > 0 {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]string{
				{"text": strings.Join(systemPrompts, "\n\n")},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini payload: %w", err)
	}

	model := c.model
	if override := modelFromContext(ctx); override != "" {
		model = override
	}

	req, err := NewGenerateContentRequest(ctx, c.baseURL, model, c.apiKey, c.tokenSource, body)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", DecodeError("gemini", resp)
	}

	var completion struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("gemini decode response: %w", err)
	}

	if len(completion.Candidates) == 0 || len(completion.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var parts []string
	for _, part := range completion.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini candidate missing text")
	}
	return strings.Join(parts, "\n\n"), nil
}

// NewGenerateContentRequest builds an authenticated generateContent call. The API key goes in the
// query string unless a token source is present.
func NewGenerateContentRequest(ctx context.Context, baseURL, model, apiKey string, tokenSource oauth2.TokenSource, body []byte) (*http.Request, error) {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", baseURL, url.PathEscape(NormalizeModel(model)))
	if tokenSource == nil {
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("gemini: missing API key or service account credentials")
		}
		endpoint = fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if tokenSource != nil {
		token, err := tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("gemini: fetch oauth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}
	return req, nil
}

// DecodeError turns a non-2xx provider response into an error carrying the provider message.
func DecodeError(provider string, resp *http.Response) error {
	var failure struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&failure)
	return fmt.Errorf("%s status %d: %s", provider, resp.StatusCode, failure.Error.Message)
}

// NormalizeModel strips the optional "models/" prefix.
func NormalizeModel(model string) string {
	clean := strings.TrimSpace(model)
	return strings.TrimPrefix(clean, "models/")
}
