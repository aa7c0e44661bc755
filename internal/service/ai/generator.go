package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/config"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Prompt is one self-contained generation request.
type Prompt struct {
	System string
	User   string
}

// Generator turns a prompt into reply text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig, logger *zap.SugaredLogger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var (
		gen Generator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "ark":
		chatModel, cmErr := cfg.Ark.NewChatModel(ctx)
		if cmErr != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", cmErr)
		}
		gen, err = NewArkGenerator(ctx, chatModel, logger)
	case "openai":
		gen, err = NewOpenAIGenerator(cfg.OpenAI, logger)
	case "gemini":
		gen, err = NewGeminiGenerator(ctx, cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func cleanCompletion(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
