package mcpagent

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
	"github.com/wagiedev/mcp-agent-go/internal/pipeline"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/resolver"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a client connection.
type Options = config.Options

// AgentOptions configures the tool-orchestration loop.
type AgentOptions = config.AgentOptions

// Settings is the process configuration read from the environment.
type Settings = config.Settings

// SamplingHandler serves sampling/createMessage requests from a server.
type SamplingHandler = config.SamplingHandler

// NotificationHandler receives server notifications.
type NotificationHandler = config.NotificationHandler

// ===== Protocol Types =====

// These are the official MCP protocol types.
type (
	// InitializeResult is the server's answer to the handshake.
	InitializeResult = mcp.InitializeResult

	// Tool is a tool declaration.
	Tool = mcp.Tool

	// CallToolResult is the server's response to a tool call.
	// Use TextResult, ErrorResult, or ImageResult helpers to create results.
	CallToolResult = mcp.CallToolResult

	// Resource is a static resource declaration.
	Resource = mcp.Resource

	// ResourceTemplate is a parameterized resource declaration.
	ResourceTemplate = mcp.ResourceTemplate

	// ReadResourceResult holds the contents of a resource.
	ReadResourceResult = mcp.ReadResourceResult

	// Prompt is a prompt declaration.
	Prompt = mcp.Prompt

	// GetPromptResult is a rendered prompt.
	GetPromptResult = mcp.GetPromptResult

	// PromptMessage is one message of a rendered prompt.
	PromptMessage = mcp.PromptMessage

	// CreateMessageParams is a sampling request from a server.
	CreateMessageParams = mcp.CreateMessageParams

	// CreateMessageResult is the client's answer to a sampling request.
	CreateMessageResult = mcp.CreateMessageResult

	// TextContent is text content in results and messages.
	TextContent = mcp.TextContent

	// Schema is a JSON Schema object for argument validation.
	Schema = jsonschema.Schema
)

// ===== Capabilities =====

// Kind names a capability kind.
type Kind = registry.Kind

// Capability kinds.
const (
	KindTool             = registry.KindTool
	KindResource         = registry.KindResource
	KindResourceTemplate = registry.KindResourceTemplate
	KindPrompt           = registry.KindPrompt
)

// Descriptor declares one capability: its kind, name, parameters, and handler.
type Descriptor = registry.Descriptor

// Param describes one named argument of a capability.
type Param = registry.Param

// Handler runs a capability with validated arguments.
type Handler = registry.Handler

// Registry holds the capabilities a server declares.
type Registry = registry.Registry

// ===== Orchestration =====

// ChatModel is the model boundary of the orchestration loop.
type ChatModel = orchestrator.ChatModel

// Request is one model call.
type Request = orchestrator.Request

// Reply is the model's answer to a Request.
type Reply = orchestrator.Reply

// ToolCall is a tool invocation requested by the model.
type ToolCall = orchestrator.ToolCall

// Turn is one entry of a conversation.
type Turn = orchestrator.Turn

// TurnKind tells turns apart.
type TurnKind = orchestrator.TurnKind

// Turn kinds.
const (
	TurnUser          = orchestrator.TurnUser
	TurnAssistantText = orchestrator.TurnAssistantText
	TurnToolCall      = orchestrator.TurnToolCall
	TurnToolResult    = orchestrator.TurnToolResult
)

// Conversation is the ordered turn log of one query.
type Conversation = orchestrator.Conversation

// Answer is the outcome of one query.
type Answer = orchestrator.Answer

// Agent answers queries by letting a model call a server's tools.
type Agent = orchestrator.Agent

// ===== Resources =====

// Resolver fills resource templates and reads the resulting resources.
type Resolver = resolver.Resolver

// ExtraParams decides how the resolver treats parameters a template does not name.
type ExtraParams = resolver.ExtraParams

// Extra parameter policies.
const (
	RejectExtra = resolver.RejectExtra
	IgnoreExtra = resolver.IgnoreExtra
)

// ===== Prompt Pipeline =====

// Pipeline turns source code into a blog post in four prompt stages.
type Pipeline = pipeline.Pipeline

// PipelineContext is the data collected by the pipeline stages.
type PipelineContext = pipeline.Context
