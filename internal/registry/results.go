package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: data, MIMEType: mimeType},
		},
	}
}

// ToolResult converts a tool handler's return value to a CallToolResult.
func ToolResult(v any) (*mcp.CallToolResult, error) {
	switch r := v.(type) {
	case *mcp.CallToolResult:
		if r == nil {
			return &mcp.CallToolResult{Content: []mcp.Content{}}, nil
		}

		return r, nil
	case string:
		return TextResult(r), nil
	case nil:
		return &mcp.CallToolResult{Content: []mcp.Content{}}, nil
	default:
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal tool result: %w", err)
		}

		return TextResult(string(data)), nil
	}
}

// TextOf joins the text content of a tool result.
func TextOf(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var text string

	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			if text != "" {
				text += "\n"
			}

			text += tc.Text
		}
	}

	return text
}

// NewTool declares a tool whose parameters are derived from the fields of In.
func NewTool[In any](
	name, description string,
	fn func(ctx context.Context, in In) (*mcp.CallToolResult, error),
) (Descriptor, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("derive schema for tool %q: %w", name, err)
	}

	return Descriptor{
		Kind:        KindTool,
		Name:        name,
		Description: description,
		Schema:      schema,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			in, err := DecodeArgs[In](args)
			if err != nil {
				return nil, err
			}

			return fn(ctx, in)
		},
	}, nil
}
