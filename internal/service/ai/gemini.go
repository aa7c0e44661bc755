package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/tilawa/backend/internal/config"
)

// GeminiGenerator calls the Gemini API through google.golang.org/genai.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.SugaredLogger
}

// NewGeminiGenerator builds a client from cfg.
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig, logger *zap.SugaredLogger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("gemini generator requires GEMINI_API_KEY and GEMINI_MODEL")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: cfg.Model, logger: logger}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	var gc *genai.GenerateContentConfig
	if p.System != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: p.System}}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Parts: []*genai.Part{{Text: p.User}}, Role: "user"},
	}, gc)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	text, err := cleanCompletion(sb.String())
	if err != nil {
		return "", err
	}
	g.logger.Debugw("gemini generated reply", "model", g.model, "length", len(text))
	return text, nil
}
