package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/config"
)

// OpenAIGenerator calls any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *zap.SugaredLogger
}

// NewOpenAIGenerator builds a client from cfg.
func NewOpenAIGenerator(cfg config.OpenAIConfig, logger *zap.SugaredLogger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("openai generator requires OPENAI_API_KEY and OPENAI_MODEL")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIGenerator{client: &client, model: cfg.Model, logger: logger}, nil
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text, err := cleanCompletion(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	g.logger.Debugw("openai generated reply", "model", resp.Model, "length", len(text))
	return text, nil
}
