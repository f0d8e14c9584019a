// Package orchestrator implements the tool-calling loop between a language model
// and a capability server.
//
// Each round submits the whole conversation and the discovered tools to the
// model. A reply with tool calls is executed call by call, in the order the model
// returned them, and every outcome is appended as a tool-result turn before the
// next round. A plain-text reply is the final answer. Unknown tools, invalid
// arguments, and failing tools become error turns so the model can correct
// itself.
//
// The loop is bounded: model calls time out per attempt, transient failures are
// retried with exponential backoff, and running out of rounds yields a degraded
// Answer together with *errors.RoundBudgetExceededError.
//
//	agent := orchestrator.New(model, client, &config.AgentOptions{SystemPrompt: prompt})
//	answer, err := agent.Run(ctx, "What's the weather in Seattle?")
package orchestrator
