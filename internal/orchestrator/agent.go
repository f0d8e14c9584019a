package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
)

const (
	// DefaultMaxRounds bounds model round-trips for one query.
	DefaultMaxRounds = 10

	// DefaultRoundTimeout bounds a single model call.
	DefaultRoundTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of retries for a failing model call.
	DefaultMaxRetries = 3
)

// Request is what the model sees on every round: the system preamble, the full
// conversation so far, and the declared tools exactly as discovered.
type Request struct {
	System string
	Turns  []Turn
	Tools  []*mcp.Tool
}

// Reply is the model's answer for one round. A reply with no tool calls is the
// final answer.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatModel is the model inference boundary.
type ChatModel interface {
	Converse(ctx context.Context, req *Request) (*Reply, error)
}

// ToolSession discovers and invokes tools on a capability server.
type ToolSession interface {
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Answer is the outcome of one query.
type Answer struct {
	// Text is the final answer, or the last assistant text seen when Degraded.
	Text string

	// Conversation is the full turn log.
	Conversation *Conversation

	// Rounds is the number of model calls made.
	Rounds int

	// Degraded is set when the round budget ran out before a final answer.
	Degraded bool
}

// Agent drives the tool-calling loop between a model and one tool session.
type Agent struct {
	log          *slog.Logger
	model        ChatModel
	tools        ToolSession
	systemPrompt string
	maxRounds    int
	roundTimeout time.Duration
	maxRetries   uint64

	newBackOff func() backoff.BackOff
}

// New creates an agent. A nil opts uses the defaults.
func New(model ChatModel, tools ToolSession, opts *config.AgentOptions) *Agent {
	if opts == nil {
		opts = &config.AgentOptions{}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	a := &Agent{
		log:          log.With("component", "orchestrator"),
		model:        model,
		tools:        tools,
		systemPrompt: opts.SystemPrompt,
		maxRounds:    opts.MaxRounds,
		roundTimeout: opts.RoundTimeout,
		maxRetries:   opts.MaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	if a.maxRounds <= 0 {
		a.maxRounds = DefaultMaxRounds
	}

	if a.roundTimeout <= 0 {
		a.roundTimeout = DefaultRoundTimeout
	}

	if a.maxRetries == 0 {
		a.maxRetries = DefaultMaxRetries
	}

	return a
}

// Run answers one query. It returns either a final answer or a typed error;
// when the round budget runs out it returns a degraded Answer together with
// *errors.RoundBudgetExceededError.
func (a *Agent) Run(ctx context.Context, query string) (*Answer, error) {
	tools, err := a.tools.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tools: %w", err)
	}

	declared := make(map[string]bool, len(tools))
	for _, t := range tools {
		declared[t.Name] = true
	}

	conv := NewConversation(query)
	answer := &Answer{Conversation: conv}

	for answer.Rounds < a.maxRounds {
		answer.Rounds++

		reply, err := a.converse(ctx, &Request{System: a.systemPrompt, Turns: conv.Turns(), Tools: tools})
		if err != nil {
			return answer, fmt.Errorf("round %d: %w", answer.Rounds, err)
		}

		if len(reply.ToolCalls) == 0 {
			conv.append(Turn{Kind: TurnAssistantText, Text: reply.Text})
			answer.Text = reply.Text

			a.log.Debug("Final answer", "rounds", answer.Rounds)

			return answer, nil
		}

		if reply.Text != "" {
			answer.Text = reply.Text
		}

		conv.append(Turn{Kind: TurnToolCall, Text: reply.Text, Calls: reply.ToolCalls})

		for _, call := range reply.ToolCalls {
			result, err := a.execute(ctx, declared, call)
			if err != nil {
				return answer, err
			}

			conv.append(result)
		}
	}

	a.log.Warn("Round budget exhausted", "rounds", a.maxRounds)

	answer.Degraded = true

	return answer, &errors.RoundBudgetExceededError{Rounds: a.maxRounds}
}

// converse calls the model with a per-attempt timeout, retrying failures with
// exponential backoff.
func (a *Agent) converse(ctx context.Context, req *Request) (*Reply, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), a.maxRetries), ctx)

	op := func() (*Reply, error) {
		roundCtx, cancel := context.WithTimeout(ctx, a.roundTimeout)
		defer cancel()

		reply, err := a.model.Converse(roundCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}

			return nil, err
		}

		if reply == nil {
			return nil, backoff.Permanent(stderrors.New("model returned no reply"))
		}

		return reply, nil
	}

	notify := func(err error, next time.Duration) {
		a.log.Warn("Model call failed, retrying", "error", err, "backoff", next)
	}

	return backoff.RetryNotifyWithData(op, b, notify)
}

// execute runs one tool call and turns its outcome into a tool-result turn.
// Unknown tools, bad arguments, and tool failures become error turns so the
// model can correct itself; only a dead session or a cancelled context abort
// the loop.
func (a *Agent) execute(ctx context.Context, declared map[string]bool, call ToolCall) (Turn, error) {
	turn := Turn{Kind: TurnToolResult, CallID: call.ID, ToolName: call.Name}

	if !declared[call.Name] {
		err := &errors.InvocationError{
			Kind: "tool",
			Name: call.Name,
			Err:  &errors.NotFoundError{Kind: "tool", Name: call.Name},
		}

		a.log.Debug("Model called an unknown tool", "tool", call.Name)

		turn.Text, turn.IsError = err.Error(), true

		return turn, nil
	}

	if call.ArgsErr != nil {
		err := &errors.ValidationError{
			Kind:   "tool",
			Name:   call.Name,
			Reason: fmt.Sprintf("arguments are not a valid JSON object: %v", call.ArgsErr),
			Err:    call.ArgsErr,
		}

		a.log.Debug("Model sent malformed arguments", "tool", call.Name, "error", call.ArgsErr)

		turn.Text, turn.IsError = err.Error(), true

		return turn, nil
	}

	a.log.Debug("Calling tool", "tool", call.Name)

	result, err := a.tools.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		if fatal(ctx, err) {
			return turn, fmt.Errorf("call tool %s: %w", call.Name, err)
		}

		a.log.Debug("Tool call failed", "tool", call.Name, "error", err)

		turn.Text, turn.IsError = err.Error(), true

		return turn, nil
	}

	turn.Text, turn.IsError = registry.TextOf(result), result.IsError

	return turn, nil
}

// fatal reports whether a tool call error ends the loop.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}

	return stderrors.Is(err, errors.ErrSessionClosed) ||
		stderrors.Is(err, errors.ErrClientClosed) ||
		stderrors.Is(err, errors.ErrClientNotConnected) ||
		stderrors.Is(err, errors.ErrTransportNotConnected)
}
