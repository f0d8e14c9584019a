package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
)

// fakePrompts renders "<name>|k=v;..." so the fake model can tell stages apart.
type fakePrompts struct {
	mu    sync.Mutex
	calls []string
	args  []map[string]string
}

func (f *fakePrompts) GetPrompt(_ context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	f.mu.Unlock()

	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{{Role: "user", Content: &mcp.TextContent{Text: name}}},
	}, nil
}

// stageModel answers by prompt name.
type stageModel struct {
	answers map[string]string
}

func (m *stageModel) Converse(_ context.Context, req *orchestrator.Request) (*orchestrator.Reply, error) {
	prompt := req.Turns[0].Text

	answer, ok := m.answers[prompt]
	if !ok {
		return nil, stderrors.New("unexpected prompt " + prompt)
	}

	return &orchestrator.Reply{Text: answer}, nil
}

func goodModel() *stageModel {
	return &stageModel{answers: map[string]string{
		PromptKeywords:  "```json\n{\"keywords\": [\"MCP\", \"SSE\", \"Prompts\", \"JSON-RPC\", \"stdio\"]}\n```",
		PromptIntro:     "Model Context Protocol servers expose prompts.",
		PromptMain:      "Here are five snippets.",
		PromptAggregate: "Model Context Protocol servers expose prompts. Here are five snippets. Next: sampling.",
	}}
}

func TestPipeline_Run(t *testing.T) {
	prompts := &fakePrompts{}
	p := New(nil, prompts, goodModel())

	out, err := p.Run(context.Background(), "package main", "Next: sampling.")
	require.NoError(t, err)

	require.Equal(t, []string{"MCP", "SSE", "Prompts", "JSON-RPC", "stdio"}, out.Keywords)
	require.Equal(t, "Model Context Protocol servers expose prompts.", out.Intro)
	require.Equal(t, "Here are five snippets.", out.Main)
	require.Equal(t, "Next: sampling.", out.Outlook)
	require.NotEmpty(t, out.Document)
	require.NotRegexp(t, `\{[A-Za-z_]+\}`, out.Document)

	require.Equal(t, []string{PromptKeywords, PromptIntro, PromptMain, PromptAggregate}, prompts.calls)
	require.Equal(t, "package main", prompts.args[0]["code"])
	require.Equal(t, `["MCP","SSE","Prompts","JSON-RPC","stdio"]`, prompts.args[1]["keywords"])
	require.Equal(t, "package main", prompts.args[2]["code"])
	require.Equal(t, "Next: sampling.", prompts.args[3]["outlook"])
}

func TestPipeline_StagesAreOrdered(t *testing.T) {
	ctx := context.Background()

	var (
		extracted *Extracted
		intro     *IntroGenerated
		body      *MainGenerated
	)

	_, err := extracted.Intro(ctx)
	require.ErrorIs(t, err, errors.ErrStageOutOfOrder)

	_, err = (&IntroGenerated{}).Main(ctx)
	require.ErrorIs(t, err, errors.ErrStageOutOfOrder)

	_, err = body.Aggregate(ctx, "outlook")
	require.ErrorIs(t, err, errors.ErrStageOutOfOrder)

	_, err = intro.Main(ctx)
	require.ErrorIs(t, err, errors.ErrStageOutOfOrder)
}

func TestPipeline_StageRunsOnce(t *testing.T) {
	prompts := &fakePrompts{}
	start := New(nil, prompts, goodModel()).Start("code")

	extracted, err := start.Extract(context.Background())
	require.NoError(t, err)

	_, err = start.Extract(context.Background())
	require.ErrorIs(t, err, errors.ErrStageOutOfOrder)

	// The earlier context is untouched by later stages.
	intro, err := extracted.Intro(context.Background())
	require.NoError(t, err)
	require.Empty(t, extracted.Context().Intro)
	require.NotEmpty(t, intro.Context().Intro)

	require.Len(t, prompts.calls, 2)
}

func TestPipeline_MalformedKeywords(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "MCP, FastMCP"},
		{name: "too few", reply: `{"keywords": ["MCP", "SSE"]}`},
		{name: "too many", reply: `{"keywords": ["a", "b", "c", "d", "e", "f"]}`},
		{name: "wrong key", reply: `{"tags": ["a", "b", "c", "d", "e"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := goodModel()
			model.answers[PromptKeywords] = tt.reply

			_, err := New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")

			malformed, ok := stderrors.AsType[*errors.MalformedResponseError](err)
			require.True(t, ok)
			require.Equal(t, StageExtract, malformed.Stage)
			require.Equal(t, tt.reply, malformed.Raw)
		})
	}
}

func TestPipeline_AggregateValidation(t *testing.T) {
	model := goodModel()
	model.answers[PromptAggregate] = "Intro. {main} Outlook."

	_, err := New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")

	malformed, ok := stderrors.AsType[*errors.MalformedResponseError](err)
	require.True(t, ok)
	require.Equal(t, StageAggregate, malformed.Stage)
	require.Contains(t, malformed.Error(), "{main}")

	model.answers[PromptAggregate] = "   "

	_, err = New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")

	malformed, ok = stderrors.AsType[*errors.MalformedResponseError](err)
	require.True(t, ok)
	require.Equal(t, StageAggregate, malformed.Stage)
}

func TestPipeline_AggregateKeepsQuotedCode(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "fenced f-string",
			doc:  "A blog post.\n\n```python\nprompt = f\"CODE {code}\"\n```\n\nNext: sampling.",
		},
		{
			name: "fenced slot name",
			doc:  "A blog post.\n\n```go\nfmt.Println(\"{outlook}\")\n```\n\nNext: sampling.",
		},
		{
			name: "brace outside the slot names",
			doc:  "Templates look like resource://sales/{year}/{month}. Next: sampling.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := goodModel()
			model.answers[PromptAggregate] = tt.doc

			out, err := New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")
			require.NoError(t, err)
			require.Equal(t, tt.doc, out.Document)
		})
	}
}

func TestPipeline_AggregateRejectsSlotAfterFence(t *testing.T) {
	model := goodModel()
	model.answers[PromptAggregate] = "Intro.\n```\nx := T{code}\n```\nThe end. {outlook}"

	_, err := New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")

	malformed, ok := stderrors.AsType[*errors.MalformedResponseError](err)
	require.True(t, ok)
	require.Contains(t, malformed.Error(), "{outlook}")
}

func TestPipeline_ModelFailureIsSurfaced(t *testing.T) {
	model := goodModel()
	delete(model.answers, PromptMain)

	_, err := New(nil, &fakePrompts{}, model).Run(context.Background(), "code", "outlook")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "main stage:"))
}

func TestParseKeywords(t *testing.T) {
	keywords, err := ParseKeywords(`{'keywords' : ['A', 'B', 'C', 'D', 'E']}`)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D", "E"}, keywords)

	keywords, err = ParseKeywords("Sure!\n```json\n{\"keywords\":[\" a \",\"b\",\"c\",\"d\",\"e\"]}\n```")
	require.NoError(t, err)
	require.Equal(t, "a", keywords[0])
}
