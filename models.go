package mcpagent

import (
	"context"
	"log/slog"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/llm"
)

// Re-export model types from internal/llm.

// Model holds metadata for a single Claude model.
type Model = llm.Model

// Models returns a copy of all known Claude models.
func Models() []Model {
	return llm.Models()
}

// ModelByID looks up a model by ID, Bedrock ID, alias, or dated prefix.
// Returns nil if no model is found.
func ModelByID(id string) *Model {
	m, ok := llm.Lookup(id)
	if !ok {
		return nil
	}

	return &m
}

// LoadSettings reads process settings from the environment after loading the
// given .env files (".env" when none are given).
func LoadSettings(envFiles ...string) (Settings, error) {
	return config.LoadSettings(envFiles...)
}

// NewClaudeModel creates a ChatModel backed by Claude, through Amazon Bedrock
// or the Anthropic API as settings select. The returned SamplingHandler serves
// a server's sampling requests with the same model; pass it to WithSampling.
func NewClaudeModel(ctx context.Context, settings Settings, log *slog.Logger) (ChatModel, SamplingHandler, error) {
	base, err := llm.NewClaude(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	sampling := llm.SamplingHandler(base, llm.ResolveModel(settings.Model, settings.UseBedrock))

	return llm.NewChatModel(log, base), sampling, nil
}
