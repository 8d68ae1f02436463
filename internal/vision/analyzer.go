package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"gardenDesignAi/internal/llm"
	"gardenDesignAi/internal/prompts"
)

// MaxImageBytes caps uploads forwarded to the vision and image models.
const MaxImageBytes = 7 * 1024 * 1024

// Analysis is the structured description of an uploaded garden photo. It is kept on the session
// and feeds the preserve list of later renders.
type Analysis struct {
	Summary          string   `json:"summary"`
	ExistingElements []string `json:"existing_elements"`
	Condition        string   `json:"condition"`
	EstimatedSize    string   `json:"estimated_size"`
	Exposure         string   `json:"exposure"`
	HouseStyle       string   `json:"house_style"`
	Potential        []string `json:"potential"`
	Preserve         []string `json:"preserve"`
	Raw              string   `json:"-"`
}

// Analyzer describes garden photos.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType string) (Analysis, error)
}

// GeminiAnalyzer implements Analyzer using Google's Generative Language API.
type GeminiAnalyzer struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

const defaultAnalysisModel = "gemini-3-flash-preview"

// NewGeminiAnalyzer constructs a Gemini-powered garden analyzer.
func NewGeminiAnalyzer(apiKey, model string, timeout time.Duration, tokenSource oauth2.TokenSource) *GeminiAnalyzer {
	if strings.TrimSpace(model) == "" {
		model = defaultAnalysisModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAnalyzer{
		apiKey:      apiKey,
		model:       llm.NormalizeModel(model),
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// WithBaseURL points the analyzer at another API root.
func (g *GeminiAnalyzer) WithBaseURL(base string) *GeminiAnalyzer {
	g.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	return g
}

// Analyze sends the photo with the analysis prompt. An answer that is not the expected JSON is
// kept as a plain summary.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, data []byte, mimeType string) (Analysis, error) {
	if len(data) == 0 {
		return Analysis{}, fmt.Errorf("vision: empty image data")
	}
	if len(data) > MaxImageBytes {
		return Analysis{}, fmt.Errorf("vision: image exceeds %d bytes", MaxImageBytes)
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": prompts.AnalysisPrompt()},
					{
						"inline_data": map[string]string{
							"mime_type": DetectMIME(data, mimeType),
							"data":      base64.StdEncoding.EncodeToString(data),
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.2,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: marshal payload: %w", err)
	}

	req, err := llm.NewGenerateContentRequest(ctx, g.baseURL, g.model, g.apiKey, g.tokenSource, body)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Analysis{}, llm.DecodeError("vision", resp)
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
		return Analysis{}, fmt.Errorf("vision: decode response: %w", err)
	}
	if len(completion.Candidates) == 0 || len(completion.Candidates[0].Content.Parts) == 0 {
		return Analysis{}, fmt.Errorf("vision: empty response")
	}

	var texts []string
	for _, part := range completion.Candidates[0].Content.Parts {
		if t := strings.TrimSpace(part.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return parseAnalysis(strings.Join(texts, "\n"))
}

func parseAnalysis(text string) (Analysis, error) {
	if text == "" {
		return Analysis{}, fmt.Errorf("vision: analysis missing text")
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start || json.Unmarshal([]byte(text[start:end+1]), &analysis) != nil {
			return Analysis{Summary: text, Raw: text}, nil
		}
	}
	analysis.Raw = text
	return analysis, nil
}

// DetectMIME trusts a provided image type and sniffs the bytes otherwise, defaulting to JPEG.
func DetectMIME(data []byte, provided string) string {
	mime := strings.TrimSpace(provided)
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}
