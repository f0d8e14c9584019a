package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/client"
	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/llm"
)

// target names the server a client command connects to.
type target struct {
	command string
	url     string
}

func (t *target) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.command, "server", "", `Command line that starts the server, e.g. "mcpagent serve weather"`)
	cmd.Flags().StringVar(&t.url, "url", "", "SSE endpoint of a running server, e.g. http://localhost:8081/sse")
	cmd.MarkFlagsOneRequired("server", "url")
	cmd.MarkFlagsMutuallyExclusive("server", "url")
}

// options builds client options for t. Extra args are appended to the server
// command line.
func (t *target) options(a *app, args []string) (*config.Options, error) {
	opts := &config.Options{
		Logger:         a.log,
		ClientName:     "mcpagent",
		ClientVersion:  version,
		RequestTimeout: a.settings.RequestTimeout,
	}

	if t.url != "" {
		opts.URL = t.url

		return opts, nil
	}

	fields := strings.Fields(t.command)
	if len(fields) == 0 {
		return nil, stderrors.New("empty --server command")
	}

	opts.Command = fields[0]
	opts.Args = append(fields[1:], args...)
	opts.Stderr = func(line string) {
		a.log.Debug("Server stderr", "line", line)
	}

	return opts, nil
}

// session is a connected client and the model driving it.
type session struct {
	client *client.Client
	model  *llm.ChatModel
}

func (s *session) Close() error {
	return s.client.Close()
}

// connect builds the model and connects to t. The model also serves the
// server's sampling requests.
func (a *app) connect(ctx context.Context, t *target, args []string) (*session, error) {
	base, err := llm.NewClaude(ctx, a.settings)
	if err != nil {
		return nil, err
	}

	opts, err := t.options(a, args)
	if err != nil {
		return nil, err
	}

	opts.Sampling = llm.SamplingHandler(base, llm.ResolveModel(a.settings.Model, a.settings.UseBedrock))
	opts.OnNotification = func(_ context.Context, method string, _ []byte) {
		a.log.Info("Server notification", "method", method)
	}

	c := client.New()
	if err := c.Start(ctx, opts); err != nil {
		return nil, fmt.Errorf("connect to server: %w", err)
	}

	return &session{client: c, model: llm.NewChatModel(a.log, base)}, nil
}
