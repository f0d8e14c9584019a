// Package blog is a capability server declaring the prompts that turn source
// code into a blog post, plus a greeting prompt.
package blog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagiedev/mcp-agent-go/internal/pipeline"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

const (
	// ServerName is announced during the handshake.
	ServerName = "PromptServer"

	// Instructions is sent to clients in the initialize result.
	Instructions = "A MCP Server providing prompts to generate blog posts"

	// PromptGreet asks for a greeting in a given language.
	PromptGreet = "Greet MCP Server"

	defaultLanguage = "EN"
)

const keywordsPrompt = `ROLE
You are a helpful developer or code analyst.

TASK
The task is to analyse the input code and extract the technologies used in the code.
Define the technologies used in the code in 5 keywords. Focus on frameworks used, for instance libraries or modules and
relevent protocols. Do not return basics of programming such as programming languages or core elements of a programming language standard library

OUTPUT
Return the keywords as STRICT JSON, with the key "keywords" and a list of keywords. Example: {'keywords' : ['KeywordA', 'KeywordB']}

CODE
%s
`

const introPrompt = `ROLE
You are a blogger for code development, writing articles for a data science audience.

TASK
Write an intro section of 5-7 sentences for a blogpost.
The blogpost focuses on a topics described by those keywords.

Return the blog intro.

KEYWORDS
%s
`

const mainPrompt = `ROLE
You are a blogger for code development, writing articles for a data science audience.

TASK
1 ) Analyse the provided code and extract 5 sections of code which are related to the provided keywords.
2 ) Provide for each code section a short description
3 ) Aggregate the code plus description into a main part of the blogpost

OUTPUT
Return the main part of the blogpost.

INPUT
KEYWORDS
%s

INPUT
CODE
%s
`

const aggregatePrompt = `ROLE
You are a blogger for code development, writing articles for a data science audience.

TASK
1) Combine the input from intro, main and outlook blog parts into a single post.
2) Polish the language into a clear, professional tone.

OUTPUT
Return the final blog post

INPUT
INTRO
%s

INPUT
MAIN
%s

OUTLOOK
%s
`

func arg(args map[string]any, name string) string {
	v, _ := args[name].(string)

	return v
}

// Prompts returns the descriptors of every prompt the server declares.
func Prompts() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Kind:        registry.KindPrompt,
			Name:        PromptGreet,
			Description: "Generate a polite greeting in a defined language",
			Params:      []registry.Param{{Name: "language", Description: "ISO 639 language code"}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				language := arg(args, "language")
				if language == "" {
					language = defaultLanguage
				}

				return fmt.Sprintf("Create a greeting for the user in the language %s (ISO 639 language code)", language), nil
			},
		},
		{
			Kind:        registry.KindPrompt,
			Name:        pipeline.PromptKeywords,
			Description: "Extract the technologies used in code as five keywords",
			Params:      []registry.Param{{Name: "code", Description: "Codebase to analyze", Required: true}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf(keywordsPrompt, arg(args, "code")), nil
			},
		},
		{
			Kind:        registry.KindPrompt,
			Name:        pipeline.PromptIntro,
			Description: "Create an intro section from a list of keywords",
			Params:      []registry.Param{{Name: "keywords", Description: "Keywords for the intro, as a JSON array", Required: true}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf(introPrompt, arg(args, "keywords")), nil
			},
		},
		{
			Kind:        registry.KindPrompt,
			Name:        pipeline.PromptMain,
			Description: "Create a blog post main section from the provided code",
			Params: []registry.Param{
				{Name: "keywords", Description: "Keywords for the post, as a JSON array", Required: true},
				{Name: "code", Description: "Code to analyse", Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf(mainPrompt, arg(args, "keywords"), arg(args, "code")), nil
			},
		},
		{
			Kind:        registry.KindPrompt,
			Name:        pipeline.PromptAggregate,
			Description: "Aggregate and polish different sections of a blog post",
			Params: []registry.Param{
				{Name: "intro", Description: "Intro section", Required: true},
				{Name: "main", Description: "Main section", Required: true},
				{Name: "outlook", Description: "Outlook section", Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf(aggregatePrompt, arg(args, "intro"), arg(args, "main"), arg(args, "outlook")), nil
			},
		},
	}
}

// Register declares every prompt on reg.
func Register(reg *registry.Registry) error {
	for _, d := range Prompts() {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	return nil
}

// NewServer builds the prompt server.
func NewServer(log *slog.Logger) (*server.Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := registry.New(log)

	if err := Register(reg); err != nil {
		return nil, err
	}

	return server.New(ServerName, "1.0.0", reg,
		server.WithLogger(log),
		server.WithInstructions(Instructions),
	), nil
}
