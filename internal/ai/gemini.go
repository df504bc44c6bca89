package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini endpoint, mainly for tests.
	BaseURL string
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Generator backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &geminiGenerator{client: client, model: cfg.Model}, nil
}

// Generate sends the prompt, and the file as inline data when present.
func (g *geminiGenerator) Generate(ctx context.Context, prompt string, file *File) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if file != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: file.MIMEType,
				Data:     file.Data,
			},
		})
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
