package mcpagent_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	mcpagent "github.com/wagiedev/mcp-agent-go"
)

type forecastArgs struct {
	Latitude  float64 `json:"latitude"  jsonschema:"Latitude of the location"`
	Longitude float64 `json:"longitude" jsonschema:"Longitude of the location"`
}

// serve starts an in-process server and returns an option connecting to it.
func serve(t *testing.T) mcpagent.Option {
	t.Helper()

	reg := mcpagent.NewRegistry(nil)

	tool, err := mcpagent.NewTool("get_forecast", "Get weather forecast for a location.",
		func(_ context.Context, in forecastArgs) (*mcpagent.CallToolResult, error) {
			if in.Latitude > 90 {
				return mcpagent.ErrorResult("latitude out of range"), nil
			}

			return mcpagent.TextResult("Sunny"), nil
		})
	require.NoError(t, err)
	reg.MustRegister(tool)

	srv := mcpagent.NewServer("weather", "1.0.0", reg, mcpagent.WithInstructions("forecasts"))

	ctx, cancel := context.WithCancel(context.Background())
	conn, served := mcpagent.Pipe(ctx, srv)

	t.Cleanup(func() {
		cancel()
		<-served
	})

	return conn
}

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mcpagent.WithClient(ctx, func(_ mcpagent.Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_NoServerConfigured(t *testing.T) {
	err := mcpagent.WithClient(context.Background(), func(_ mcpagent.Client) error {
		t.Error("callback should not be called without a server")

		return nil
	})
	require.Error(t, err)

	_, ok := errors.AsType[*mcpagent.ConnectionError](err)
	require.True(t, ok)
}

func TestWithClient_CallsTool(t *testing.T) {
	ctx := context.Background()

	err := mcpagent.WithClient(ctx, func(c mcpagent.Client) error {
		require.Equal(t, "weather", c.ServerInfo().ServerInfo.Name)
		require.Equal(t, "forecasts", c.ServerInfo().Instructions)

		tools, err := c.ListTools(ctx)
		require.NoError(t, err)
		require.Len(t, tools, 1)

		result, err := c.CallTool(ctx, "get_forecast", map[string]any{"latitude": 47.6, "longitude": -122.3})
		require.NoError(t, err)
		require.Equal(t, "Sunny", mcpagent.TextOf(result))

		result, err = c.CallTool(ctx, "get_forecast", map[string]any{"latitude": 100.0, "longitude": 0.0})
		require.NoError(t, err)
		require.True(t, result.IsError)

		_, err = c.CallTool(ctx, "get_alerts", nil)
		_, ok := errors.AsType[*mcpagent.NotFoundError](err)
		require.True(t, ok)

		return nil
	}, serve(t), mcpagent.WithLogger(slog.Default()))
	require.NoError(t, err)
}

func TestWithClient_CallbackError(t *testing.T) {
	sentinel := errors.New("stop")

	err := mcpagent.WithClient(context.Background(), func(_ mcpagent.Client) error {
		return sentinel
	}, serve(t))
	require.ErrorIs(t, err, sentinel)
}

// forecastModel calls get_forecast once, then answers with the tool output.
type forecastModel struct{}

func (forecastModel) Converse(_ context.Context, req *mcpagent.Request) (*mcpagent.Reply, error) {
	last := req.Turns[len(req.Turns)-1]
	if last.Kind == mcpagent.TurnToolResult {
		return &mcpagent.Reply{Text: "The forecast says: " + last.Text}, nil
	}

	return &mcpagent.Reply{ToolCalls: []mcpagent.ToolCall{{
		ID:        "call-1",
		Name:      "get_forecast",
		Arguments: map[string]any{"latitude": 47.6, "longitude": -122.3},
	}}}, nil
}

func TestQuery(t *testing.T) {
	answer, err := mcpagent.Query(context.Background(), forecastModel{}, "Weather in Seattle?", serve(t))
	require.NoError(t, err)
	require.Equal(t, "The forecast says: Sunny", answer.Text)
	require.Equal(t, 2, answer.Rounds)
	require.Equal(t, []mcpagent.TurnKind{
		mcpagent.TurnUser,
		mcpagent.TurnToolCall,
		mcpagent.TurnToolResult,
		mcpagent.TurnAssistantText,
	}, answer.Conversation.Kinds())
}

func TestModelByID(t *testing.T) {
	m := mcpagent.ModelByID("claude-sonnet-4")
	require.NotNil(t, m)
	require.Equal(t, "claude-sonnet-4-20250514", m.ID)

	require.Nil(t, mcpagent.ModelByID("gpt-4"))
	require.NotEmpty(t, mcpagent.Models())
}
