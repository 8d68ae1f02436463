package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexImagen implements Renderer via the Vertex AI Imagen edit endpoint.
type VertexImagen struct {
	projectID          string
	location           string
	model              string
	apiKey             string
	serviceAccount     string
	serviceAccountJSON string
}

// VertexImagenConfig describes how to connect to Imagen.
type VertexImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// NewVertexImagen wires a VertexImagen client.
func NewVertexImagen(cfg VertexImagenConfig) *VertexImagen {
	return &VertexImagen{
		projectID:          strings.TrimSpace(cfg.ProjectID),
		location:           strings.TrimSpace(cfg.Location),
		model:              strings.TrimSpace(cfg.Model),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		serviceAccount:     strings.TrimSpace(cfg.ServiceAccount),
		serviceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
	}
}

// Render runs a free-form Imagen edit of the source photo.
func (v *VertexImagen) Render(ctx context.Context, req RenderRequest) (ImageResult, error) {
	if v == nil {
		return ImageResult{}, fmt.Errorf("imagen: client not configured")
	}
	if v.projectID == "" || v.location == "" || v.model == "" {
		return ImageResult{}, fmt.Errorf("imagen: missing project/location/model")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return ImageResult{}, fmt.Errorf("imagen: prompt is required")
	}
	if len(req.Image) == 0 {
		return ImageResult{}, fmt.Errorf("imagen: reference image is required")
	}

	instance, err := structpb.NewValue(map[string]any{
		"prompt": req.Prompt,
		"image": map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(req.Image),
		},
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("imagen: build instance: %w", err)
	}

	params, err := structpb.NewValue(map[string]any{
		"sampleCount": 1,
		"editMode":    "inpainting-free-form",
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("imagen: build parameters: %w", err)
	}

	client, err := aiplatform.NewPredictionClient(ctx, v.clientOptions()...)
	if err != nil {
		return ImageResult{}, fmt.Errorf("imagen: prediction client: %w", err)
	}
	defer client.Close()

	resp, err := client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   v.endpoint(),
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("imagen: predict: %w", err)
	}
	return decodePrediction(resp.GetPredictions())
}

func (v *VertexImagen) endpoint() string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.projectID, v.location, v.model)
}

func (v *VertexImagen) clientOptions() []option.ClientOption {
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.location))}
	switch {
	case v.serviceAccountJSON != "":
		options = append(options, option.WithCredentialsJSON([]byte(v.serviceAccountJSON)))
	case v.serviceAccount != "":
		options = append(options, option.WithCredentialsFile(v.serviceAccount))
	case v.apiKey != "":
		options = append(options, option.WithAPIKey(v.apiKey))
	}
	return options
}

// decodePrediction takes the first prediction carrying image bytes.
func decodePrediction(predictions []*structpb.Value) (ImageResult, error) {
	for _, p := range predictions {
		fields := p.GetStructValue().GetFields()
		encoded := fields["bytesBase64Encoded"].GetStringValue()
		if encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return ImageResult{}, fmt.Errorf("imagen: decode result: %w", err)
		}
		mime := fields["mimeType"].GetStringValue()
		if mime == "" {
			mime = "image/png"
		}
		return ImageResult{Data: data, MIME: mime}, nil
	}
	return ImageResult{}, fmt.Errorf("imagen: prediction missing bytes")
}
