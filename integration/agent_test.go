//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	mcpagent "github.com/wagiedev/mcp-agent-go"
	"github.com/wagiedev/mcp-agent-go/internal/capability/weather"
)

// TestAgent_WeatherForecast lets Claude answer with the live weather tools.
func TestAgent_WeatherForecast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	model, _ := claudeModel(ctx, t)

	client := mcpagent.NewClient()

	err := client.Start(ctx, mcpagent.WithCommand(serverCommand, "serve", "weather"))
	if err != nil {
		skipIfServerNotInstalled(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	defer client.Close()

	answer, err := mcpagent.NewAgent(model, client,
		mcpagent.WithSystemPrompt(weather.SystemPrompt),
		mcpagent.WithMaxRounds(5),
	).Run(ctx, "What's the forecast for Sacramento?")
	require.NoError(t, err)
	require.NotEmpty(t, answer.Text)
	require.GreaterOrEqual(t, answer.Rounds, 2)
	require.Contains(t, answer.Conversation.Kinds(), mcpagent.TurnToolResult)
}

// TestAgent_OffTopic checks the weather app declines unrelated questions
// without calling tools.
func TestAgent_OffTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	model, _ := claudeModel(ctx, t)

	answer, err := mcpagent.Query(ctx, model, "Who wrote Hamlet?",
		mcpagent.WithCommand(serverCommand, "serve", "weather"),
	)
	if err != nil {
		skipIfServerNotInstalled(t, err)
	}

	require.NoError(t, err)
	require.NotContains(t, answer.Conversation.Kinds(), mcpagent.TurnToolCall)
}

// TestSpaceNews_TranslatedThroughSampling routes the server's translation
// request back to Claude.
func TestSpaceNews_TranslatedThroughSampling(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	_, sampling := claudeModel(ctx, t)

	err := mcpagent.WithClient(ctx, func(c mcpagent.Client) error {
		result, err := c.CallTool(ctx, "get_todays_spacenews", map[string]any{"language": "DE"})
		if err != nil {
			return err
		}

		require.NotEmpty(t, mcpagent.TextOf(result))

		return nil
	},
		mcpagent.WithCommand(serverCommand, "serve", "spacenews"),
		mcpagent.WithSampling(sampling),
	)
	if err != nil {
		skipIfServerNotInstalled(t, err)
	}

	require.NoError(t, err)
}
