//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"

	mcpagent "github.com/wagiedev/mcp-agent-go"
)

// serverCommand is the installed command line that serves the capabilities.
const serverCommand = "mcpagent"

// skipIfServerNotInstalled skips the test if the error indicates the server
// command could not be started.
func skipIfServerNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*mcpagent.ConnectionError](err); ok {
		t.Skipf("%s not installed: %v", serverCommand, err)
	}
}

// claudeModel returns a model configured from the environment, skipping the
// test when no credentials are available.
func claudeModel(ctx context.Context, t *testing.T) (mcpagent.ChatModel, mcpagent.SamplingHandler) {
	t.Helper()

	if os.Getenv("ANTHROPIC_API_KEY") == "" && os.Getenv("AWS_PROFILE") == "" {
		t.Skip("no Claude credentials configured")
	}

	settings, err := mcpagent.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if os.Getenv("ANTHROPIC_API_KEY") != "" && os.Getenv("MCPAGENT_USE_BEDROCK") == "" {
		settings.UseBedrock = false
		settings.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	model, sampling, err := mcpagent.NewClaudeModel(ctx, settings, nil)
	if err != nil {
		t.Skipf("Claude model unavailable: %v", err)
	}

	return model, sampling
}
