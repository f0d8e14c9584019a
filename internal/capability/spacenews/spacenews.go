// Package spacenews is a capability server returning today's spaceflight news.
// Non-English requests are translated by the connected client's model through
// sampling.
package spacenews

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

const (
	// ServerName is announced during the handshake.
	ServerName = "SpaceNewsTranslation"

	// DefaultBaseURL is the Spaceflight News API articles endpoint.
	DefaultBaseURL = "https://api.spaceflightnewsapi.net/v4/articles/"

	// DefaultLanguage needs no translation.
	DefaultLanguage = "EN"

	requestTimeout   = 30 * time.Second
	sampleMaxTokens  = 2048
	dateLayout       = "2006-01-02"
	toolName         = "get_todays_spacenews"
	msgAPIFailed     = "API Call Failed."
	msgSamplingError = "Translation failed, LLM Sampling not available."
)

const translatePrompt = `Translate the title and the summary of each news entry into the language %s (ISO639 format).

The input format is a json list of key-value pairs with "title" : "News Title" and "summary" : "News Summary".
The expected return format must be a json list of key-value pairs with keys "title" and "summary", and the values must be translated into the specified language

Example Language : DE
Example Input:
    [
        {"title" : "Live Coverage: SpaceX Falcon 9 to make another attempt to launch Amazon Project Kuiper mission",
        "summary" : "Liftoff from Space Launch Complex 40 at Cape Canaveral Space Force Station in Florida is scheduled for 8:57 a.m. EDT (1257 UTC), after three earlier attempts were scrubbed."}
    ]
Example Output:
    [
        {"title" : "Live Übertragung: SpaceX Falcon 9 macht erneuten Versuch für Amazon Projekt Kuiper Mission",
        "summary" : "Start von Space Launch Complex 40 auf Cape Canaveral Space Force Station in Florida ist geplant für 8:57 a.m. EDT (1257 UTC), nachdem drei vorherige Termine abgesagt wurden."}
    ]

Input News Data (json-format)
%s
`

// Article is one news entry as returned to the caller.
type Article struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type articlesResponse struct {
	Results []Article `json:"results"`
}

// Feed fetches articles from the Spaceflight News API.
type Feed struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	now     func() time.Time
}

// NewFeed creates a feed client. A nil httpClient uses one with a 30s timeout;
// an empty baseURL uses DefaultBaseURL.
func NewFeed(log *slog.Logger, httpClient *http.Client, baseURL string) *Feed {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Feed{
		log:     log.With("component", "spacenews"),
		http:    httpClient,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Today returns the articles published since the start of the current day.
func (f *Feed) Today(ctx context.Context) ([]Article, error) {
	endpoint, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	query := endpoint.Query()
	query.Set("published_at_gte", f.now().Format(dateLayout))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	f.log.Debug("GET", "url", req.URL.String())

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out articlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return out.Results, nil
}

type newsArgs struct {
	Language string `json:"language,omitempty" jsonschema:"ISO639 code of the language to return, defaults to EN"`
}

// Register declares get_todays_spacenews on reg.
func Register(reg *registry.Registry, feed *Feed) error {
	tool, err := registry.NewTool(toolName,
		"Get todays latest Space News from the portal spaceflightnewsapi.net. "+
			"Translates the news through LLM sampling if the selected language is not EN. "+
			"Returns a JSON list of objects with keys 'title' and 'summary'.",
		func(ctx context.Context, in newsArgs) (*mcp.CallToolResult, error) {
			return todaysNews(ctx, feed, in.Language)
		})
	if err != nil {
		return err
	}

	return reg.Register(tool)
}

func todaysNews(ctx context.Context, feed *Feed, language string) (*mcp.CallToolResult, error) {
	if language == "" {
		language = DefaultLanguage
	}

	articles, err := feed.Today(ctx)
	if err != nil || len(articles) == 0 {
		feed.log.Warn("Fetching news failed", "articles", len(articles), "error", err)

		return nil, stderrors.New(msgAPIFailed)
	}

	if strings.EqualFold(language, DefaultLanguage) {
		return registry.ToolResult(articles)
	}

	translated, err := translate(ctx, articles, language)
	if err != nil {
		feed.log.Warn("Translation failed", "language", language, "error", err)

		return nil, stderrors.New(msgSamplingError)
	}

	return registry.TextResult(translated), nil
}

// translate asks the calling client's model to translate articles.
func translate(ctx context.Context, articles []Article, language string) (string, error) {
	sampler, ok := server.SamplerFrom(ctx)
	if !ok {
		return "", stderrors.New("no sampling session")
	}

	data, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("marshal articles: %w", err)
	}

	result, err := sampler.CreateMessage(ctx, &mcp.CreateMessageParams{
		Messages: []*mcp.SamplingMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: fmt.Sprintf(translatePrompt, language, data)},
		}},
		MaxTokens: sampleMaxTokens,
	})
	if err != nil {
		return "", err
	}

	text, ok := result.Content.(*mcp.TextContent)
	if !ok {
		return "", fmt.Errorf("unexpected sampling content %T", result.Content)
	}

	return text.Text, nil
}

// NewServer builds the space news server.
func NewServer(log *slog.Logger, feed *Feed) (*server.Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := registry.New(log)

	if err := Register(reg, feed); err != nil {
		return nil, err
	}

	return server.New(ServerName, "1.0.0", reg, server.WithLogger(log)), nil
}
