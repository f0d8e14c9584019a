package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/config"
)

// SamplingHandler serves a server's sampling/createMessage requests with m.
// modelName is reported back as the model that produced the message.
func SamplingHandler(m model.BaseChatModel, modelName string) config.SamplingHandler {
	return func(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
		messages := make([]*schema.Message, 0, len(params.Messages)+1)

		if params.SystemPrompt != "" {
			messages = append(messages, schema.SystemMessage(params.SystemPrompt))
		}

		for _, msg := range params.Messages {
			text, ok := msg.Content.(*mcp.TextContent)
			if !ok {
				return nil, fmt.Errorf("sampling: unsupported content %T", msg.Content)
			}

			if msg.Role == "assistant" {
				messages = append(messages, schema.AssistantMessage(text.Text, nil))
			} else {
				messages = append(messages, schema.UserMessage(text.Text))
			}
		}

		var opts []model.Option
		if params.MaxTokens > 0 {
			opts = append(opts, model.WithMaxTokens(int(params.MaxTokens)))
		}

		if len(params.StopSequences) > 0 {
			opts = append(opts, model.WithStop(params.StopSequences))
		}

		out, err := m.Generate(ctx, messages, opts...)
		if err != nil {
			return nil, fmt.Errorf("sampling: %w", err)
		}

		return &mcp.CreateMessageResult{
			Model:      modelName,
			Role:       "assistant",
			Content:    &mcp.TextContent{Text: out.Content},
			StopReason: "endTurn",
		}, nil
	}
}
