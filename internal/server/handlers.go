package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-agent-go/internal/protocol"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
)

// Discovery and invocation methods.
const (
	MethodToolsList             = "tools/list"
	MethodToolsCall             = "tools/call"
	MethodResourcesList         = "resources/list"
	MethodResourceTemplatesList = "resources/templates/list"
	MethodResourcesRead         = "resources/read"
	MethodPromptsList           = "prompts/list"
	MethodPromptsGet            = "prompts/get"
)

// MIME types used when a resource declares none.
const (
	defaultResourceTextMIMEType  = "text/plain"
	defaultResourceBlobMIMEType  = "application/octet-stream"
	defaultResourceValueMIMEType = "application/json"
)

// callToolParams is the payload of tools/call.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// readResourceParams is the payload of resources/read.
type readResourceParams struct {
	URI string `json:"uri"`
}

// getPromptParams is the payload of prompts/get. Prompt arguments are strings on
// the wire.
type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// bind registers the registry-backed handlers on a session.
func (s *Server) bind(session *protocol.Session) {
	ctrl := session.Controller()

	wrap := func(h func(context.Context, *jsonrpc.Message) (any, error)) protocol.RequestHandler {
		return func(ctx context.Context, req *jsonrpc.Message) (any, error) {
			return h(withSession(ctx, session), req)
		}
	}

	ctrl.RegisterHandler(MethodToolsList, wrap(s.listTools))
	ctrl.RegisterHandler(MethodToolsCall, wrap(s.callTool))
	ctrl.RegisterHandler(MethodResourcesList, wrap(s.listResources))
	ctrl.RegisterHandler(MethodResourceTemplatesList, wrap(s.listResourceTemplates))
	ctrl.RegisterHandler(MethodResourcesRead, wrap(s.readResource))
	ctrl.RegisterHandler(MethodPromptsList, wrap(s.listPrompts))
	ctrl.RegisterHandler(MethodPromptsGet, wrap(s.getPrompt))
}

func decodeParams(method string, req *jsonrpc.Message, v any) error {
	if err := req.DecodeParams(v); err != nil {
		return &errors.ValidationError{Kind: "method", Name: method, Reason: err.Error(), Err: err}
	}

	return nil
}

func (s *Server) listTools(context.Context, *jsonrpc.Message) (any, error) {
	descriptors := s.registry.List(registry.KindTool)
	tools := make([]*mcp.Tool, 0, len(descriptors))

	for _, d := range descriptors {
		tools = append(tools, &mcp.Tool{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			InputSchema: d.InputSchema(),
		})
	}

	return &mcp.ListToolsResult{Tools: tools}, nil
}

// callTool runs a tool. Handler failures are returned in-band with isError set
// so the model can see them; unknown tools and bad arguments are protocol errors.
func (s *Server) callTool(ctx context.Context, req *jsonrpc.Message) (any, error) {
	var params callToolParams
	if err := decodeParams(MethodToolsCall, req, &params); err != nil {
		return nil, err
	}

	s.log.Debug("Calling tool", "tool", params.Name)

	result, err := s.registry.Invoke(ctx, registry.KindTool, params.Name, params.Arguments)
	if err != nil {
		if invErr, ok := stderrors.AsType[*errors.InvocationError](err); ok {
			s.log.Warn("Tool failed", "tool", params.Name, "error", invErr.Err)

			return registry.ErrorResult(invErr.Err.Error()), nil
		}

		return nil, err
	}

	return registry.ToolResult(result)
}

func (s *Server) listResources(context.Context, *jsonrpc.Message) (any, error) {
	descriptors := s.registry.List(registry.KindResource)
	resources := make([]*mcp.Resource, 0, len(descriptors))

	for _, d := range descriptors {
		resources = append(resources, &mcp.Resource{
			URI:         d.URI,
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			MIMEType:    d.MIMEType,
		})
	}

	return &mcp.ListResourcesResult{Resources: resources}, nil
}

func (s *Server) listResourceTemplates(context.Context, *jsonrpc.Message) (any, error) {
	descriptors := s.registry.List(registry.KindResourceTemplate)
	templates := make([]*mcp.ResourceTemplate, 0, len(descriptors))

	for _, d := range descriptors {
		templates = append(templates, &mcp.ResourceTemplate{
			URITemplate: d.URITemplate,
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			MIMEType:    d.MIMEType,
		})
	}

	return &mcp.ListResourceTemplatesResult{ResourceTemplates: templates}, nil
}

func (s *Server) readResource(ctx context.Context, req *jsonrpc.Message) (any, error) {
	var params readResourceParams
	if err := decodeParams(MethodResourcesRead, req, &params); err != nil {
		return nil, err
	}

	value, d, err := s.registry.ReadResource(ctx, params.URI)
	if err != nil {
		return nil, err
	}

	contents, err := resourceContents(params.URI, d.MIMEType, value)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{contents}}, nil
}

// resourceContents converts a resource handler's return value to wire contents.
func resourceContents(uri, mimeType string, value any) (*mcp.ResourceContents, error) {
	switch v := value.(type) {
	case *mcp.ResourceContents:
		return v, nil
	case string:
		return &mcp.ResourceContents{URI: uri, MIMEType: orDefault(mimeType, defaultResourceTextMIMEType), Text: v}, nil
	case []byte:
		return &mcp.ResourceContents{URI: uri, MIMEType: orDefault(mimeType, defaultResourceBlobMIMEType), Blob: v}, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal resource %s: %w", uri, err)
		}

		return &mcp.ResourceContents{
			URI:      uri,
			MIMEType: orDefault(mimeType, defaultResourceValueMIMEType),
			Text:     string(data),
		}, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}

func (s *Server) listPrompts(context.Context, *jsonrpc.Message) (any, error) {
	descriptors := s.registry.List(registry.KindPrompt)
	prompts := make([]*mcp.Prompt, 0, len(descriptors))

	for _, d := range descriptors {
		args := make([]*mcp.PromptArgument, 0, len(d.Params))
		for _, p := range d.Params {
			args = append(args, &mcp.PromptArgument{
				Name:        p.Name,
				Description: p.Description,
				Required:    p.Required,
			})
		}

		prompts = append(prompts, &mcp.Prompt{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			Arguments:   args,
		})
	}

	return &mcp.ListPromptsResult{Prompts: prompts}, nil
}

func (s *Server) getPrompt(ctx context.Context, req *jsonrpc.Message) (any, error) {
	var params getPromptParams
	if err := decodeParams(MethodPromptsGet, req, &params); err != nil {
		return nil, err
	}

	args := make(map[string]any, len(params.Arguments))
	for k, v := range params.Arguments {
		args[k] = v
	}

	value, err := s.registry.Invoke(ctx, registry.KindPrompt, params.Name, args)
	if err != nil {
		return nil, err
	}

	d, _ := s.registry.Lookup(registry.KindPrompt, params.Name)

	return promptResult(d.Description, value)
}

// promptResult converts a prompt handler's return value to a GetPromptResult.
func promptResult(description string, value any) (*mcp.GetPromptResult, error) {
	switch v := value.(type) {
	case *mcp.GetPromptResult:
		return v, nil
	case []*mcp.PromptMessage:
		return &mcp.GetPromptResult{Description: description, Messages: v}, nil
	case string:
		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: v}},
			},
		}, nil
	default:
		return nil, fmt.Errorf("prompt returned unsupported type %T", value)
	}
}
