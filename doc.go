// Package mcpagent provides Model Context Protocol (MCP) servers and clients,
// and an agent loop that lets a language model use a server's capabilities.
//
// Servers declare tools, resources, resource templates, and prompts in a
// Registry and serve them over stdio or HTTP with server-sent events. Clients
// connect to a server, complete the initialize handshake, and discover and
// invoke those capabilities. An Agent drives a ChatModel through rounds of
// tool calls until the model answers.
//
// # Serving Capabilities
//
//	reg := mcpagent.NewRegistry(slog.Default())
//
//	forecast, err := mcpagent.NewTool("get_forecast", "Get weather forecast for a location.",
//	    func(ctx context.Context, in forecastArgs) (*mcpagent.CallToolResult, error) {
//	        return mcpagent.TextResult(lookup(in.Latitude, in.Longitude)), nil
//	    })
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg.MustRegister(forecast)
//
//	srv := mcpagent.NewServer("weather", "1.0.0", reg)
//	err = srv.ServeStdio(ctx, os.Stdin, os.Stdout)
//
// # Connecting
//
// Use NewClient or the WithClient helper:
//
//	err := mcpagent.WithClient(ctx, func(c mcpagent.Client) error {
//	    result, err := c.CallTool(ctx, "get_forecast", map[string]any{
//	        "latitude": 47.6, "longitude": -122.3,
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(mcpagent.TextOf(result))
//	    return nil
//	},
//	    mcpagent.WithCommand("mcpagent", "serve", "weather"),
//	)
//
// # Agents
//
// An Agent sends the conversation and the server's tools to a ChatModel,
// executes the tool calls it returns in order, and repeats until the model
// answers with text or the round budget is spent:
//
//	settings, _ := mcpagent.LoadSettings()
//	model, sampling, err := mcpagent.NewClaudeModel(ctx, settings, logger)
//	...
//	client := mcpagent.NewClient()
//	err = client.Start(ctx, mcpagent.WithCommand("mcpagent", "serve", "weather"),
//	    mcpagent.WithSampling(sampling))
//	...
//	answer, err := mcpagent.NewAgent(model, client,
//	    mcpagent.WithSystemPrompt("You are a weather app."),
//	).Run(ctx, "Any alerts in Texas?")
//
// # Error Handling
//
// Errors are typed; use errors.AsType or errors.Is:
//
//	if _, ok := errors.AsType[*mcpagent.NotFoundError](err); ok {
//	    // unknown tool, prompt, or resource
//	}
//	if errors.Is(err, mcpagent.ErrSessionClosed) {
//	    // the connection went away
//	}
//
// # Logging
//
// All components log through log/slog. Pass a logger with WithLogger; without
// one, logging is disabled.
package mcpagent
