package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/capability/weather"
	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
)

func newChatCommand(a *app) *cobra.Command {
	var (
		t      target
		system string
	)

	cmd := &cobra.Command{
		Use:   "chat --server <cmd> [-- server args...]",
		Short: "Chat with a model that can call the server's tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := a.connect(ctx, &t, args)
			if err != nil {
				return err
			}
			defer s.Close()

			tools, err := s.client.ListTools(ctx)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(tools))
			for _, tool := range tools {
				names = append(names, tool.Name)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nConnected to server with tools: %v\n", names)

			agent := orchestrator.New(s.model, s.client, &config.AgentOptions{
				Logger:       a.log,
				SystemPrompt: system,
				MaxRounds:    a.settings.MaxRounds,
			})

			return chatLoop(ctx, agent, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	t.addFlags(cmd)
	cmd.Flags().StringVar(&system, "system", weather.SystemPrompt, "System prompt for the model")

	return cmd
}

// runner answers one query.
type runner interface {
	Run(ctx context.Context, query string) (*orchestrator.Answer, error)
}

// chatLoop reads queries from in until "quit" or EOF. Failed queries are
// reported and the loop continues.
func chatLoop(ctx context.Context, agent runner, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "\n\nThe MCP Weather Client Started")
	fmt.Fprintln(out, "Type your weather-related queries or 'quit'")

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "\nQuery: ")

		if !scanner.Scan() {
			fmt.Fprintln(out)

			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())

		if strings.EqualFold(query, "quit") {
			return nil
		}

		if query == "" {
			continue
		}

		answer, err := agent.Run(ctx, query)

		if answer != nil {
			fmt.Fprintln(out, "\n"+renderAnswer(answer))
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if _, ok := stderrors.AsType[*errors.RoundBudgetExceededError](err); ok {
				fmt.Fprintf(out, "\n(%v)\n", err)

				continue
			}

			fmt.Fprintf(out, "\nError: %v\n", err)
		}
	}
}

// renderAnswer lists the tool calls made for the answer, then its text.
func renderAnswer(answer *orchestrator.Answer) string {
	var lines []string

	for _, turn := range answer.Conversation.Turns() {
		if turn.Kind != orchestrator.TurnToolCall {
			continue
		}

		for _, call := range turn.Calls {
			lines = append(lines, fmt.Sprintf("[Calling tool %s with args %v]", call.Name, call.Arguments))
		}
	}

	if answer.Text != "" {
		lines = append(lines, answer.Text)
	}

	return strings.Join(lines, "\n")
}
