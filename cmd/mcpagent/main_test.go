package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/client"
	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
	"github.com/wagiedev/mcp-agent-go/internal/resolver"
	"github.com/wagiedev/mcp-agent-go/internal/transport"
)

func testApp(t *testing.T) *app {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "sales_data")
	require.NoError(t, os.Mkdir(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("Revenue is in USD."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "march_2025.csv"), []byte("product,units\nwidget,7\n"), 0o644))

	return &app{
		log: slog.Default(),
		settings: config.Settings{
			SalesDir:   dataDir,
			ReadmePath: filepath.Join(dir, "README.md"),
			HTTPAddr:   "localhost:0",
		},
	}
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCommand()
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRoot_Models(t *testing.T) {
	t.Setenv("MCPAGENT_USE_BEDROCK", "false")
	t.Setenv("MCPAGENT_MODEL", "claude-sonnet-4")

	out, err := runRoot(t, "models")
	require.NoError(t, err)
	require.Contains(t, out, "claude-sonnet-4-5-20250929")
	require.Contains(t, out, "Configured: claude-sonnet-4-20250514")

	out, err = runRoot(t, "--model", "haiku", "models")
	require.NoError(t, err)
	require.Contains(t, out, "Configured: claude-haiku-4-5-20251001")
}

func TestRoot_ServeRejectsUnknownServer(t *testing.T) {
	_, err := runRoot(t, "serve", "calendar")
	require.Error(t, err)

	_, err = runRoot(t, "serve")
	require.Error(t, err)
}

func TestRoot_ClientCommandsNeedServer(t *testing.T) {
	_, err := runRoot(t, "chat")
	require.Error(t, err)

	_, err = runRoot(t, "blog", "--server", "x", "--url", "http://localhost/sse", "--code", "main.go")
	require.Error(t, err)
}

func TestBuildServer(t *testing.T) {
	a := testApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, name := range capabilityServers {
		srv, err := a.buildServer(ctx, name)
		require.NoError(t, err, name)
		require.NotNil(t, srv, name)
	}

	_, err := a.buildServer(ctx, "calendar")
	require.Error(t, err)
}

func TestTarget_Options(t *testing.T) {
	a := testApp(t)

	tgt := target{command: "mcpagent serve weather"}

	opts, err := tgt.options(a, []string{"--transport", "stdio"})
	require.NoError(t, err)
	require.Equal(t, "mcpagent", opts.Command)
	require.Equal(t, []string{"serve", "weather", "--transport", "stdio"}, opts.Args)
	require.Empty(t, opts.URL)

	tgt = target{url: "http://localhost:8081/sse"}

	opts, err = tgt.options(a, nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8081/sse", opts.URL)
	require.Empty(t, opts.Command)

	tgt = target{command: "   "}

	_, err = tgt.options(a, nil)
	require.Error(t, err)
}

type scriptedRunner struct {
	answers map[string]*orchestrator.Answer
	errs    map[string]error
	queries []string
}

func (r *scriptedRunner) Run(_ context.Context, query string) (*orchestrator.Answer, error) {
	r.queries = append(r.queries, query)

	return r.answers[query], r.errs[query]
}

func TestChatLoop(t *testing.T) {
	runner := &scriptedRunner{
		answers: map[string]*orchestrator.Answer{
			"weather in Seattle?": {Text: "Rainy.", Conversation: orchestrator.NewConversation("weather in Seattle?")},
			"loop":                {Text: "Partial.", Conversation: orchestrator.NewConversation("loop"), Degraded: true},
		},
		errs: map[string]error{
			"loop":   &errors.RoundBudgetExceededError{Rounds: 2},
			"broken": stderrors.New("model unavailable"),
		},
	}

	in := strings.NewReader("weather in Seattle?\n\nloop\nbroken\nQUIT\nnever asked\n")

	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), runner, in, &out))

	require.Equal(t, []string{"weather in Seattle?", "loop", "broken"}, runner.queries)
	require.Contains(t, out.String(), "The MCP Weather Client Started")
	require.Contains(t, out.String(), "\nRainy.\n")
	require.Contains(t, out.String(), "Partial.")
	require.Contains(t, out.String(), "Error: model unavailable")
}

func TestChatLoop_EOF(t *testing.T) {
	runner := &scriptedRunner{}

	require.NoError(t, chatLoop(context.Background(), runner, strings.NewReader(""), io.Discard))
	require.Empty(t, runner.queries)
}

// capturingModel records the request and answers with a fixed text.
type capturingModel struct {
	req *orchestrator.Request
}

func (m *capturingModel) Converse(_ context.Context, req *orchestrator.Request) (*orchestrator.Reply, error) {
	m.req = req

	return &orchestrator.Reply{Text: "Widgets sold 7 units."}, nil
}

func connectSales(t *testing.T, a *app) *client.Client {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	srv, err := a.buildServer(ctx, "sales")
	require.NoError(t, err)

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()
	served := make(chan error, 1)

	go func() {
		served <- srv.ServeStdio(ctx, serverR, serverW)
	}()

	c := client.New()
	require.NoError(t, c.Start(context.Background(), &config.Options{
		Logger:    slog.Default(),
		Transport: transport.NewStreamTransport(slog.Default(), clientR, clientW),
	}))

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-served
	})

	return c
}

func TestAnalyzeSales(t *testing.T) {
	a := testApp(t)
	c := connectSales(t, a)
	model := &capturingModel{}

	var out bytes.Buffer

	err := analyzeSales(context.Background(), c, resolver.New(c), model,
		salesQuery{year: 2025, month: "March", question: "Which product sold best?"}, &out)
	require.NoError(t, err)

	require.Contains(t, out.String(), "- README: ReadMe File for MCP Server")
	require.Contains(t, out.String(), "- get_sales: Provides Sales Stats per month and per year")
	require.Contains(t, out.String(), "Widgets sold 7 units.")

	require.Contains(t, model.req.System, "Revenue is in USD.")
	require.Len(t, model.req.Turns, 1)
	require.True(t, strings.HasPrefix(model.req.Turns[0].Text, "Which product sold best?\n\nSales Data:\n"))
	require.Contains(t, model.req.Turns[0].Text, `"widget"`)
}

func TestAnalyzeSales_MissingMonth(t *testing.T) {
	a := testApp(t)
	c := connectSales(t, a)

	err := analyzeSales(context.Background(), c, resolver.New(c), &capturingModel{},
		salesQuery{year: 2025, month: "april", question: "?"}, io.Discard)

	_, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)
}
