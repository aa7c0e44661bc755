package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ArkGenerator runs prompts through an eino chain ending in a chat model.
type ArkGenerator struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.SugaredLogger
}

// NewArkGenerator compiles the template → model chain once.
func NewArkGenerator(ctx context.Context, chatModel model.BaseChatModel, logger *zap.SugaredLogger) (*ArkGenerator, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkGenerator{chain: runnable, logger: logger}, nil
}

// Generate implements Generator.
func (g *ArkGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{
		"system": p.System,
		"query":  p.User,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	text, err := cleanCompletion(msg.Content)
	if err != nil {
		return "", err
	}
	g.logger.Debugw("ark generated reply", "length", len(text))
	return text, nil
}
