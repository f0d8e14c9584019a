package llm

import (
	"slices"
	"strings"
)

// Model holds metadata for a Claude model the agent can drive.
type Model struct {
	// ID is the Anthropic API model identifier.
	ID string
	// BedrockID is the cross-region inference profile on Amazon Bedrock.
	BedrockID string
	// Name is the human-readable display name.
	Name string
	// Aliases are shorthand names accepted in MCPAGENT_MODEL.
	Aliases []string
	// MaxOutputTokens is the maximum number of output tokens.
	MaxOutputTokens int
}

// APIModel returns the identifier to send to the chosen backend.
func (m Model) APIModel(bedrock bool) string {
	if bedrock && m.BedrockID != "" {
		return m.BedrockID
	}

	return m.ID
}

// catalog is the list of known models. Only the newest model per tier gets the
// short alias.
var catalog = []Model{
	{
		ID:              "claude-sonnet-4-5-20250929",
		BedrockID:       "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		Name:            "Claude Sonnet 4.5",
		Aliases:         []string{"sonnet", "claude-sonnet-4-5"},
		MaxOutputTokens: 64_000,
	},
	{
		ID:              "claude-haiku-4-5-20251001",
		BedrockID:       "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		Name:            "Claude Haiku 4.5",
		Aliases:         []string{"haiku", "claude-haiku-4-5"},
		MaxOutputTokens: 64_000,
	},
	{
		ID:              "claude-opus-4-1-20250805",
		BedrockID:       "us.anthropic.claude-opus-4-1-20250805-v1:0",
		Name:            "Claude Opus 4.1",
		Aliases:         []string{"opus", "claude-opus-4-1"},
		MaxOutputTokens: 32_000,
	},
	{
		ID:              "claude-sonnet-4-20250514",
		BedrockID:       "us.anthropic.claude-sonnet-4-20250514-v1:0",
		Name:            "Claude Sonnet 4",
		Aliases:         []string{"claude-sonnet-4"},
		MaxOutputTokens: 64_000,
	},
	{
		ID:              "claude-3-5-haiku-20241022",
		BedrockID:       "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		Name:            "Claude Haiku 3.5",
		Aliases:         []string{"claude-3-5-haiku"},
		MaxOutputTokens: 8_192,
	},
}

// Models returns a copy of every known model.
func Models() []Model {
	return slices.Clone(catalog)
}

// Lookup finds a model by exact ID or Bedrock ID, then by alias, then by
// prefix for dated identifiers.
func Lookup(id string) (Model, bool) {
	for _, m := range catalog {
		if m.ID == id || m.BedrockID == id {
			return m, true
		}
	}

	for _, m := range catalog {
		if slices.Contains(m.Aliases, id) {
			return m, true
		}
	}

	for _, m := range catalog {
		for _, alias := range m.Aliases {
			if strings.HasPrefix(id, alias) {
				return m, true
			}
		}
	}

	return Model{}, false
}

// ResolveModel maps a configured model name to the identifier the backend
// expects. Unknown names pass through unchanged.
func ResolveModel(name string, bedrock bool) string {
	if m, ok := Lookup(name); ok {
		return m.APIModel(bedrock)
	}

	return name
}
