package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
)

// Prompt names the stages render on the server.
const (
	PromptKeywords  = "Get Keywords From Code"
	PromptIntro     = "Get Intro From Keywords"
	PromptMain      = "Get Main Section From Code"
	PromptAggregate = "Aggregate Blog Sections"
)

// KeywordCount is the number of keywords the extract stage must produce.
const KeywordCount = 5

// Stage names reported in errors.
const (
	StageExtract   = "extract"
	StageIntro     = "intro"
	StageMain      = "main"
	StageAggregate = "aggregate"
)

var placeholderPattern = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// PromptSession renders server-declared prompts.
type PromptSession interface {
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
}

// Context is the data the stages fill in, one field per stage.
type Context struct {
	Code     string
	Keywords []string
	Intro    string
	Main     string
	Outlook  string
	Document string
}

func (c Context) clone() Context {
	c.Keywords = append([]string(nil), c.Keywords...)

	return c
}

// Pipeline runs the four blog stages against a prompt server and a model.
type Pipeline struct {
	log     *slog.Logger
	prompts PromptSession
	model   orchestrator.ChatModel
}

// New creates a pipeline. A nil log discards output.
func New(log *slog.Logger, prompts PromptSession, model orchestrator.ChatModel) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{log: log.With("component", "pipeline"), prompts: prompts, model: model}
}

// Start begins a pipeline for code.
func (p *Pipeline) Start(code string) *Extracting {
	return &Extracting{stage: stage{p: p, ctx: Context{Code: code}}}
}

// Run executes every stage in order and returns the filled context.
func (p *Pipeline) Run(ctx context.Context, code, outlook string) (Context, error) {
	extracted, err := p.Start(code).Extract(ctx)
	if err != nil {
		return Context{}, err
	}

	intro, err := extracted.Intro(ctx)
	if err != nil {
		return Context{}, err
	}

	body, err := intro.Main(ctx)
	if err != nil {
		return Context{}, err
	}

	done, err := body.Aggregate(ctx, outlook)
	if err != nil {
		return Context{}, err
	}

	return done.Context(), nil
}

// stage is the state shared by every step. A zero stage has no pipeline and
// refuses to run; a stage runs at most once.
type stage struct {
	p        *Pipeline
	ctx      Context
	consumed atomic.Bool
}

func outOfOrder(name string) error {
	return fmt.Errorf("%w: %s has no input from the previous stage", errors.ErrStageOutOfOrder, name)
}

func (s *stage) claim(name string) error {
	if s.p == nil {
		return outOfOrder(name)
	}

	if !s.consumed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s already ran for this context", errors.ErrStageOutOfOrder, name)
	}

	return nil
}

// Context returns a copy of the data gathered so far.
func (s *stage) Context() Context {
	return s.ctx.clone()
}

// Extracting holds the source code.
type Extracting struct{ stage }

// Extracted holds the keywords.
type Extracted struct{ stage }

// IntroGenerated holds the intro.
type IntroGenerated struct{ stage }

// MainGenerated holds the main section.
type MainGenerated struct{ stage }

// Aggregated holds the final document.
type Aggregated struct{ stage }

// Document returns the final blog post.
func (a *Aggregated) Document() string {
	if a == nil {
		return ""
	}

	return a.ctx.Document
}

// Extract asks the model for exactly KeywordCount keywords describing the code.
// Output that is not {"keywords": [...]} with that many entries is a
// *errors.MalformedResponseError.
func (s *Extracting) Extract(ctx context.Context) (*Extracted, error) {
	if s == nil {
		return nil, outOfOrder(StageExtract)
	}

	if err := s.claim(StageExtract); err != nil {
		return nil, err
	}

	raw, err := s.p.complete(ctx, StageExtract, PromptKeywords, map[string]string{"code": s.ctx.Code})
	if err != nil {
		return nil, err
	}

	keywords, err := ParseKeywords(raw)
	if err != nil {
		return nil, &errors.MalformedResponseError{Stage: StageExtract, Raw: raw, Err: err}
	}

	next := s.ctx.clone()
	next.Keywords = keywords

	return &Extracted{stage: stage{p: s.p, ctx: next}}, nil
}

// Intro writes the intro from the keywords.
func (s *Extracted) Intro(ctx context.Context) (*IntroGenerated, error) {
	if s == nil {
		return nil, outOfOrder(StageIntro)
	}

	if err := s.claim(StageIntro); err != nil {
		return nil, err
	}

	intro, err := s.p.completeText(ctx, StageIntro, PromptIntro, map[string]string{
		"keywords": encodeKeywords(s.ctx.Keywords),
	})
	if err != nil {
		return nil, err
	}

	next := s.ctx.clone()
	next.Intro = intro

	return &IntroGenerated{stage: stage{p: s.p, ctx: next}}, nil
}

// Main writes the main section from the keywords and the code.
func (s *IntroGenerated) Main(ctx context.Context) (*MainGenerated, error) {
	if s == nil {
		return nil, outOfOrder(StageMain)
	}

	if err := s.claim(StageMain); err != nil {
		return nil, err
	}

	section, err := s.p.completeText(ctx, StageMain, PromptMain, map[string]string{
		"keywords": encodeKeywords(s.ctx.Keywords),
		"code":     s.ctx.Code,
	})
	if err != nil {
		return nil, err
	}

	next := s.ctx.clone()
	next.Main = section

	return &MainGenerated{stage: stage{p: s.p, ctx: next}}, nil
}

// Aggregate combines intro, main, and the caller's outlook into the final post.
// The result must be non-empty and must not contain the prompt's own
// {intro}, {main} or {outlook} slots.
func (s *MainGenerated) Aggregate(ctx context.Context, outlook string) (*Aggregated, error) {
	if s == nil {
		return nil, outOfOrder(StageAggregate)
	}

	if err := s.claim(StageAggregate); err != nil {
		return nil, err
	}

	args := map[string]string{
		"intro":   s.ctx.Intro,
		"main":    s.ctx.Main,
		"outlook": outlook,
	}

	doc, err := s.p.completeText(ctx, StageAggregate, PromptAggregate, args)
	if err != nil {
		return nil, err
	}

	if leftover := unfilledSlot(doc, args); leftover != "" {
		return nil, &errors.MalformedResponseError{
			Stage: StageAggregate,
			Raw:   doc,
			Err:   fmt.Errorf("unfilled placeholder %s", leftover),
		}
	}

	next := s.ctx.clone()
	next.Outlook = outlook
	next.Document = doc

	return &Aggregated{stage: stage{p: s.p, ctx: next}}, nil
}

// unfilledSlot returns the first {name} in doc naming one of the prompt's
// arguments. Text inside fenced code blocks is quoted code and is skipped.
func unfilledSlot(doc string, args map[string]string) string {
	inFence := false

	for line := range strings.Lines(doc) {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence

			continue
		}

		if inFence {
			continue
		}

		for _, m := range placeholderPattern.FindAllString(line, -1) {
			if _, ok := args[m[1:len(m)-1]]; ok {
				return m
			}
		}
	}

	return ""
}

// complete renders a server prompt and returns the model's reply to it.
func (p *Pipeline) complete(ctx context.Context, stageName, prompt string, args map[string]string) (string, error) {
	p.log.Debug("Running stage", "stage", stageName, "prompt", prompt)

	rendered, err := p.prompts.GetPrompt(ctx, prompt, args)
	if err != nil {
		return "", fmt.Errorf("%s stage: get prompt %q: %w", stageName, prompt, err)
	}

	turns := make([]orchestrator.Turn, 0, len(rendered.Messages))

	for _, msg := range rendered.Messages {
		text, ok := msg.Content.(*mcp.TextContent)
		if !ok {
			return "", fmt.Errorf("%s stage: prompt %q has non-text content %T", stageName, prompt, msg.Content)
		}

		kind := orchestrator.TurnUser
		if msg.Role == "assistant" {
			kind = orchestrator.TurnAssistantText
		}

		turns = append(turns, orchestrator.Turn{Kind: kind, Text: text.Text})
	}

	reply, err := p.model.Converse(ctx, &orchestrator.Request{Turns: turns})
	if err != nil {
		return "", fmt.Errorf("%s stage: %w", stageName, err)
	}

	return reply.Text, nil
}

// completeText is complete for stages whose output is free text.
func (p *Pipeline) completeText(ctx context.Context, stageName, prompt string, args map[string]string) (string, error) {
	text, err := p.complete(ctx, stageName, prompt, args)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &errors.MalformedResponseError{Stage: stageName, Err: stderrors.New("empty response")}
	}

	return text, nil
}

// keywordsReply is the structured output of the extract stage.
type keywordsReply struct {
	Keywords []string `json:"keywords"`
}

// ParseKeywords decodes {"keywords": [...]} from a model reply. Markdown code
// fences around the JSON are ignored, as are single-quoted strings.
func ParseKeywords(raw string) ([]string, error) {
	body := stripFences(raw)

	var reply keywordsReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		if err2 := json.Unmarshal([]byte(strings.ReplaceAll(body, "'", `"`)), &reply); err2 != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
	}

	keywords := make([]string, 0, len(reply.Keywords))

	for _, k := range reply.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	if len(keywords) != KeywordCount {
		return nil, fmt.Errorf("want %d keywords, got %d", KeywordCount, len(keywords))
	}

	return keywords, nil
}

// stripFences removes a surrounding ```json ... ``` block, keeping its body.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "```"); start >= 0 {
		s = s[start+3:]
		s = strings.TrimPrefix(s, "json")

		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	return strings.TrimSpace(s)
}

// encodeKeywords renders keywords as a JSON array, the wire form of list
// arguments to prompts.
func encodeKeywords(keywords []string) string {
	data, _ := json.Marshal(keywords)

	return string(data)
}
