package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
)

// Compile-time verification that ChatModel implements orchestrator.ChatModel.
var _ orchestrator.ChatModel = (*ChatModel)(nil)

// ChatModel adapts an eino tool-calling chat model to the orchestrator.
type ChatModel struct {
	log   *slog.Logger
	model model.ToolCallingChatModel
}

// NewChatModel wraps m.
func NewChatModel(log *slog.Logger, m model.ToolCallingChatModel) *ChatModel {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &ChatModel{log: log.With("component", "llm"), model: m}
}

// Model returns the wrapped eino model.
func (c *ChatModel) Model() model.ToolCallingChatModel {
	return c.model
}

// Converse implements orchestrator.ChatModel.
func (c *ChatModel) Converse(ctx context.Context, req *orchestrator.Request) (*orchestrator.Reply, error) {
	m := c.model

	// Conversion failures repeat on every attempt, so they are not retried.
	if len(req.Tools) > 0 {
		infos, err := ToolInfos(req.Tools)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		m, err = m.WithTools(infos)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("bind tools: %w", err))
		}
	}

	messages, err := Messages(req.System, req.Turns)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	c.log.Debug("Generating", "messages", len(messages), "tools", len(req.Tools))

	out, err := m.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	reply := &orchestrator.Reply{Text: out.Content}

	for _, tc := range out.ToolCalls {
		call := orchestrator.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: map[string]any{}}

		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
				c.log.Debug("Undecodable tool arguments", "tool", tc.Function.Name, "error", err)

				call.Arguments = map[string]any{}
				call.ArgsErr = fmt.Errorf("decode arguments of %s: %w", tc.Function.Name, err)
			}
		}

		reply.ToolCalls = append(reply.ToolCalls, call)
	}

	return reply, nil
}

// ToolInfos declares discovered tools to the model. Input schemas are handed
// over unchanged.
func ToolInfos(tools []*mcp.Tool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))

	for _, t := range tools {
		info := &schema.ToolInfo{Name: t.Name, Desc: t.Description}

		if t.InputSchema != nil {
			raw, err := json.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("marshal schema of %s: %w", t.Name, err)
			}

			var js jsonschema.Schema
			if err := json.Unmarshal(raw, &js); err != nil {
				return nil, fmt.Errorf("convert schema of %s: %w", t.Name, err)
			}

			info.ParamsOneOf = schema.NewParamsOneOfByJSONSchema(&js)
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// Messages renders a conversation as eino messages.
func Messages(system string, turns []orchestrator.Turn) ([]*schema.Message, error) {
	messages := make([]*schema.Message, 0, len(turns)+1)

	if system != "" {
		messages = append(messages, schema.SystemMessage(system))
	}

	for _, t := range turns {
		switch t.Kind {
		case orchestrator.TurnUser:
			messages = append(messages, schema.UserMessage(t.Text))
		case orchestrator.TurnAssistantText:
			messages = append(messages, schema.AssistantMessage(t.Text, nil))
		case orchestrator.TurnToolCall:
			calls := make([]schema.ToolCall, 0, len(t.Calls))

			for _, call := range t.Calls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("marshal arguments of %s: %w", call.Name, err)
				}

				calls = append(calls, schema.ToolCall{
					ID:       call.ID,
					Type:     "function",
					Function: schema.FunctionCall{Name: call.Name, Arguments: string(args)},
				})
			}

			messages = append(messages, schema.AssistantMessage(t.Text, calls))
		case orchestrator.TurnToolResult:
			text := t.Text
			if t.IsError {
				text = "Error: " + text
			}

			messages = append(messages, schema.ToolMessage(text, t.CallID))
		default:
			return nil, fmt.Errorf("unknown turn kind %d", t.Kind)
		}
	}

	return messages, nil
}
