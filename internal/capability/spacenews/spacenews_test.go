package spacenews

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/client"
	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/transport"
)

var testDay = time.Date(2025, time.May, 2, 15, 4, 0, 0, time.UTC)

func newNewsAPI(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/articles/", r.URL.Path)
		assert.Equal(t, "2025-05-02", r.URL.Query().Get("published_at_gte"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestFeed(t *testing.T, body string, status int) *Feed {
	t.Helper()

	api := newNewsAPI(t, body, status)

	feed := NewFeed(slog.Default(), api.Client(), api.URL+"/v4/articles/")
	feed.now = func() time.Time { return testDay }

	return feed
}

const twoArticles = `{"count":2,"results":[
	{"id":1,"title":"Falcon 9 launches","summary":"Liftoff at dawn.","url":"https://example.com/1"},
	{"id":2,"title":"Starship test","summary":"Static fire complete."}
]}`

func connect(t *testing.T, feed *Feed, sampling config.SamplingHandler) *client.Client {
	t.Helper()

	srv, err := NewServer(slog.Default(), feed)
	require.NoError(t, err)

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() {
		served <- srv.ServeStdio(ctx, serverR, serverW)
	}()

	c := client.New()
	require.NoError(t, c.Start(context.Background(), &config.Options{
		Logger:    slog.Default(),
		Transport: transport.NewStreamTransport(slog.Default(), clientR, clientW),
		Sampling:  sampling,
	}))

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-served
	})

	return c
}

func TestFeed_Today(t *testing.T) {
	feed := newTestFeed(t, twoArticles, http.StatusOK)

	articles, err := feed.Today(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Article{
		{Title: "Falcon 9 launches", Summary: "Liftoff at dawn."},
		{Title: "Starship test", Summary: "Static fire complete."},
	}, articles)
}

func TestFeed_TodayFailure(t *testing.T) {
	feed := newTestFeed(t, "oops", http.StatusBadGateway)

	_, err := feed.Today(context.Background())
	require.Error(t, err)
}

func TestTool_English(t *testing.T) {
	c := connect(t, newTestFeed(t, twoArticles, http.StatusOK), nil)

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, toolName, tools[0].Name)

	res, err := c.CallTool(context.Background(), toolName, map[string]any{})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.JSONEq(t,
		`[{"title":"Falcon 9 launches","summary":"Liftoff at dawn."},{"title":"Starship test","summary":"Static fire complete."}]`,
		registry.TextOf(res))
}

func TestTool_TranslatesThroughSampling(t *testing.T) {
	var prompt string

	sampling := func(_ context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
		prompt = params.Messages[0].Content.(*mcp.TextContent).Text

		return &mcp.CreateMessageResult{
			Model:   "test-model",
			Role:    "assistant",
			Content: &mcp.TextContent{Text: `[{"title":"Falcon 9 startet","summary":"Start im Morgengrauen."}]`},
		}, nil
	}

	c := connect(t, newTestFeed(t, twoArticles, http.StatusOK), sampling)

	res, err := c.CallTool(context.Background(), toolName, map[string]any{"language": "DE"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, registry.TextOf(res), "Falcon 9 startet")

	require.True(t, strings.HasPrefix(prompt, "Translate the title and the summary of each news entry into the language DE"))
	require.Contains(t, prompt, `"title":"Starship test"`)
}

func TestTool_TranslationWithoutSampling(t *testing.T) {
	c := connect(t, newTestFeed(t, twoArticles, http.StatusOK), nil)

	res, err := c.CallTool(context.Background(), toolName, map[string]any{"language": "FR"})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, msgSamplingError, registry.TextOf(res))
}

func TestTool_APIFailure(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "server error", body: "down", status: http.StatusInternalServerError},
		{name: "no articles", body: `{"results":[]}`, status: http.StatusOK},
		{name: "bad json", body: `{"results":`, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := connect(t, newTestFeed(t, tt.body, tt.status), nil)

			res, err := c.CallTool(context.Background(), toolName, nil)
			require.NoError(t, err)
			require.True(t, res.IsError)
			require.Equal(t, msgAPIFailed, registry.TextOf(res))
		})
	}
}
