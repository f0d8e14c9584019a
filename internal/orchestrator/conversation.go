package orchestrator

import (
	"slices"
	"sync"
)

// TurnKind identifies what a turn holds.
type TurnKind int

const (
	// TurnUser is the user's query.
	TurnUser TurnKind = iota + 1

	// TurnAssistantText is a plain-text model reply. It ends the loop.
	TurnAssistantText

	// TurnToolCall is a model reply requesting one or more tool calls.
	TurnToolCall

	// TurnToolResult is the outcome of one tool call.
	TurnToolResult
)

func (k TurnKind) String() string {
	switch k {
	case TurnUser:
		return "user"
	case TurnAssistantText:
		return "assistant-text"
	case TurnToolCall:
		return "assistant-tool-call"
	case TurnToolResult:
		return "tool-result"
	default:
		return "unknown"
	}
}

// ToolCall is one invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any

	// ArgsErr is set when the model's arguments could not be decoded. The
	// call is then answered with an error turn instead of being executed.
	ArgsErr error
}

// Turn is one entry of a conversation.
type Turn struct {
	Kind TurnKind

	// Text is the user query, the assistant text, or the tool output. A tool
	// call turn may carry text the model emitted alongside its calls.
	Text string

	// Calls holds the requested calls of a TurnToolCall, in model order.
	Calls []ToolCall

	// CallID and ToolName identify the call a TurnToolResult answers.
	CallID   string
	ToolName string

	// IsError marks a tool result that reports a failure to the model.
	IsError bool
}

// Conversation is the append-only turn log of one query.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewConversation starts a conversation with the user's query.
func NewConversation(query string) *Conversation {
	return &Conversation{turns: []Turn{{Kind: TurnUser, Text: query}}}
}

func (c *Conversation) append(t Turn) {
	t.Calls = slices.Clone(t.Calls)

	c.mu.Lock()
	c.turns = append(c.turns, t)
	c.mu.Unlock()
}

// Turns returns a snapshot of the conversation.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		t.Calls = slices.Clone(t.Calls)
		out[i] = t
	}

	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.turns)
}

// Kinds returns the kind of every turn in order.
func (c *Conversation) Kinds() []TurnKind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make([]TurnKind, len(c.turns))
	for i, t := range c.turns {
		kinds[i] = t.Kind
	}

	return kinds
}
