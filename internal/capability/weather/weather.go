// Package weather is a capability server exposing US weather alerts and
// forecasts from the National Weather Service as tools.
package weather

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

// ServerName is announced during the handshake.
const ServerName = "weather"

// SystemPrompt frames the chat client that drives these tools.
const SystemPrompt = "You are an app that returns information on the weather in the US. " +
	"If queries are not related to weather return the message \"I am just a simple weather app :(\". " +
	"When using tools, infer required arguments from user inputs and do not ask user again"

type alertsArgs struct {
	State string `json:"state" jsonschema:"Two-letter US state code (e.g. CA, NY)"`
}

type forecastArgs struct {
	Latitude  float64 `json:"latitude"  jsonschema:"Latitude of the location"`
	Longitude float64 `json:"longitude" jsonschema:"Longitude of the location"`
}

// Register declares get_alerts and get_forecast on reg.
func Register(reg *registry.Registry, nws *NWS) error {
	alerts, err := registry.NewTool("get_alerts", "Get weather alerts for a US state.",
		func(ctx context.Context, in alertsArgs) (*mcp.CallToolResult, error) {
			return registry.TextResult(nws.Alerts(ctx, in.State)), nil
		})
	if err != nil {
		return err
	}

	forecast, err := registry.NewTool("get_forecast", "Get weather forecast for a location.",
		func(ctx context.Context, in forecastArgs) (*mcp.CallToolResult, error) {
			return registry.TextResult(nws.Forecast(ctx, in.Latitude, in.Longitude)), nil
		})
	if err != nil {
		return err
	}

	for _, d := range []registry.Descriptor{alerts, forecast} {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	return nil
}

// NewServer builds the weather server.
func NewServer(log *slog.Logger, nws *NWS) (*server.Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := registry.New(log)

	if err := Register(reg, nws); err != nil {
		return nil, err
	}

	return server.New(ServerName, "1.0.0", reg, server.WithLogger(log)), nil
}
