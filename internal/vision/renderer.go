package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// RenderRequest is one call to the image model: a source photo and the instruction to apply.
type RenderRequest struct {
	Image  []byte
	MIME   string
	Prompt string
}

// ImageResult represents a rendered image payload.
type ImageResult struct {
	Data []byte
	MIME string
}

// Renderer edits a garden photo according to a prompt and returns exactly one image.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (ImageResult, error)
}

// contentGenerator is the subset of genai.Models used for rendering.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiRenderer renders gardens via Gemini image outputs.
type GeminiRenderer struct {
	models      contentGenerator
	model       string
	timeout     time.Duration
	temperature float32
}

const defaultImageModel = "gemini-2.5-flash-image"

// NewGeminiRenderer constructs a renderer able to request inline images.
func NewGeminiRenderer(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiRenderer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("vision: image renderer needs an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: create genai client: %w", err)
	}
	return newGeminiRenderer(client.Models, model, timeout), nil
}

func newGeminiRenderer(models contentGenerator, model string, timeout time.Duration) *GeminiRenderer {
	if strings.TrimSpace(model) == "" {
		model = defaultImageModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiRenderer{
		models:      models,
		model:       strings.TrimPrefix(strings.TrimSpace(model), "models/"),
		timeout:     timeout,
		temperature: 0.4,
	}
}

// Render sends the photo followed by the prompt. The first part carrying inline image data wins.
func (g *GeminiRenderer) Render(ctx context.Context, req RenderRequest) (ImageResult, error) {
	if g == nil || g.models == nil {
		return ImageResult{}, fmt.Errorf("vision: image renderer unavailable")
	}
	if len(req.Image) == 0 {
		return ImageResult{}, fmt.Errorf("vision: render needs a source image")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return ImageResult{}, fmt.Errorf("vision: empty render prompt")
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(req.Image, DetectMIME(req.Image, req.MIME)),
		genai.NewPartFromText(req.Prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		Temperature:        genai.Ptr(g.temperature),
	}

	resp, err := g.models.GenerateContent(childCtx, g.model, contents, config)
	if err != nil {
		return ImageResult{}, fmt.Errorf("vision: render failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ImageResult{}, fmt.Errorf("vision: render returned no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if strings.TrimSpace(mime) == "" {
			mime = "image/png"
		}
		return ImageResult{Data: part.InlineData.Data, MIME: mime}, nil
	}
	return ImageResult{}, fmt.Errorf("vision: render returned no image data")
}
