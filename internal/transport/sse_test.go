package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// echoAccept answers every request with its own params as the result.
func echoAccept(ctx context.Context, t config.Transport) {
	messages, _ := t.ReadMessages(ctx)

	for msg := range messages {
		if msg.Kind() != jsonrpc.KindRequest {
			continue
		}

		resp, err := jsonrpc.NewResultResponse(msg.ID, msg.Params)
		if err != nil {
			continue
		}

		_ = t.SendMessage(ctx, resp)
	}
}

func TestSSE_RoundTrip(t *testing.T) {
	handler := NewSSEHandler(slog.Default(), echoAccept)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewSSEClientTransport(slog.Default(), srv.URL+"/sse", srv.Client())
	require.NoError(t, client.Start(ctx))

	defer client.Close()

	require.True(t, client.IsReady())
	require.Eventually(t, func() bool { return handler.Sessions() == 1 }, time.Second, 10*time.Millisecond)

	messages, _ := client.ReadMessages(ctx)

	req, err := jsonrpc.NewRequest(jsonrpc.StringID("a"), "echo", map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.NoError(t, client.SendMessage(ctx, req))

	select {
	case got := <-messages:
		require.Equal(t, jsonrpc.KindResponse, got.Kind())
		require.Equal(t, "a", got.ID.String())
		require.JSONEq(t, `{"hello":"world"}`, string(got.Result))
	case <-ctx.Done():
		t.Fatal("timed out waiting for response")
	}
}

func TestSSE_RejectsWrongContentType(t *testing.T) {
	handler := NewSSEHandler(slog.Default(), echoAccept)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/message?sessionId=x", "text/plain", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestSSE_UnknownSession(t *testing.T) {
	handler := NewSSEHandler(slog.Default(), echoAccept)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`

	resp, err := srv.Client().Post(srv.URL+"/message?sessionId=nope", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
