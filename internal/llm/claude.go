package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/wagiedev/mcp-agent-go/internal/config"
)

// NewClaude builds a Claude chat model from process settings, either through
// Amazon Bedrock or the Anthropic API.
func NewClaude(ctx context.Context, s config.Settings) (model.ToolCallingChatModel, error) {
	modelID := ResolveModel(s.Model, s.UseBedrock)

	cfg := &claude.Config{
		Model:     modelID,
		MaxTokens: s.MaxTokens,
	}

	if s.UseBedrock {
		cfg.ByBedrock = true
		cfg.Region = s.Region
		cfg.Profile = s.Profile
	} else {
		if s.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}

		cfg.APIKey = s.APIKey
	}

	m, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create claude model %s: %w", modelID, err)
	}

	return m, nil
}
