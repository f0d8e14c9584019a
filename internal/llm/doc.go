// Package llm connects the agent to Claude through eino.
//
// ChatModel adapts any eino ToolCallingChatModel to the orchestrator's model
// boundary, declaring discovered tools with their input schemas unchanged.
// NewClaude builds the model from settings, via Amazon Bedrock or the Anthropic
// API, and SamplingHandler lets the same model serve sampling requests from
// capability servers.
package llm
