package generation

import (
	"context"

	"google.golang.org/genai"

	"github.com/restyle-platform/restyle/internal/config"
)

// ModelClient abstracts the generative endpoint so the pipeline can be
// tested against fakes.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// geminiClient backs ModelClient with the Gemini API.
type geminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, cfg config.AIConfig) (ModelClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiClient{client: client}, nil
}

func (g *geminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.client.Models.GenerateContent(ctx, model, contents, cfg)
}
