package mcpagent

import (
	"context"
	"log/slog"

	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
	"github.com/wagiedev/mcp-agent-go/internal/pipeline"
	"github.com/wagiedev/mcp-agent-go/internal/resolver"
)

// NewAgent creates an agent that lets model call the tools of client's server.
//
//	agent := mcpagent.NewAgent(model, client,
//	    mcpagent.WithSystemPrompt("You are a weather app."),
//	    mcpagent.WithMaxRounds(5),
//	)
//	answer, err := agent.Run(ctx, "Any alerts in California?")
func NewAgent(model ChatModel, client Client, opts ...AgentOption) *Agent {
	return orchestrator.New(model, client, applyAgentOptions(opts))
}

// Query connects to a server, answers one prompt with model and the server's
// tools, and disconnects.
//
// On a round budget overrun the degraded answer is returned together with a
// *RoundBudgetExceededError.
func Query(ctx context.Context, model ChatModel, prompt string, opts ...Option) (*Answer, error) {
	var answer *Answer

	err := WithClient(ctx, func(c Client) error {
		var err error

		answer, err = NewAgent(model, c, WithAgentLogger(applyOptions(opts).Logger)).Run(ctx, prompt)

		return err
	}, opts...)

	return answer, err
}

// NewResolver creates a resource resolver reading through client.
// Template parameters a template does not name are rejected unless policy is
// IgnoreExtra.
func NewResolver(client Client, policy ExtraParams, log *slog.Logger) *Resolver {
	return resolver.New(client, resolver.WithExtraParams(policy), resolver.WithLogger(log))
}

// NewPipeline creates a blog-post pipeline rendering its stage prompts through
// client and completing them with model.
func NewPipeline(client Client, model ChatModel, log *slog.Logger) *Pipeline {
	return pipeline.New(log, client, model)
}

// ResourceText joins the text contents of a resource read.
func ResourceText(result *ReadResourceResult) string {
	return resolver.Text(result)
}
