package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
)

// ExtraParams selects what Resolve does with values that match no placeholder.
type ExtraParams int

const (
	// RejectExtra fails with *errors.ExtraParameterError. This is the default.
	RejectExtra ExtraParams = iota

	// IgnoreExtra drops unmatched values.
	IgnoreExtra
)

// Source is the client side of resource discovery and reading.
type Source interface {
	ListResourceTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtraParams sets the extra-parameter policy.
func WithExtraParams(policy ExtraParams) Option {
	return func(r *Resolver) {
		r.extra = policy
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// Resolver turns resource templates into concrete URIs and reads them.
type Resolver struct {
	log    *slog.Logger
	source Source
	extra  ExtraParams
}

// New creates a resolver reading from source.
func New(source Source, opts ...Option) *Resolver {
	r := &Resolver{
		log:    slog.New(slog.DiscardHandler),
		source: source,
		extra:  RejectExtra,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.log = r.log.With("component", "resolver")

	return r
}

// ListTemplates returns the server's templates in declaration order.
func (r *Resolver) ListTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error) {
	templates, err := r.source.ListResourceTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resource templates: %w", err)
	}

	return templates, nil
}

// FindTemplate returns the template declared under name.
func (r *Resolver) FindTemplate(ctx context.Context, name string) (*mcp.ResourceTemplate, error) {
	templates, err := r.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range templates {
		if t.Name == name {
			return t, nil
		}
	}

	return nil, &errors.NotFoundError{Kind: "resource-template", Name: name}
}

// Resolve substitutes params into the template's placeholders. Every placeholder
// needs a value; values without a placeholder are handled per the ExtraParams
// policy.
func (r *Resolver) Resolve(template *mcp.ResourceTemplate, params map[string]string) (string, error) {
	return Resolve(template.URITemplate, params, r.extra)
}

// Resolve expands pattern with params under the given extra-parameter policy.
func Resolve(pattern string, params map[string]string, policy ExtraParams) (string, error) {
	tmpl, err := uritemplate.New(pattern)
	if err != nil {
		return "", fmt.Errorf("parse uri template %q: %w", pattern, err)
	}

	names := tmpl.Varnames()

	var missing []string

	values := uritemplate.Values{}

	for _, name := range names {
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)

			continue
		}

		values.Set(name, uritemplate.String(v))
	}

	if len(missing) > 0 {
		return "", &errors.UnresolvedParameterError{Template: pattern, Params: missing}
	}

	if policy == RejectExtra {
		var extra []string

		for name := range params {
			if !slices.Contains(names, name) {
				extra = append(extra, name)
			}
		}

		if len(extra) > 0 {
			slices.Sort(extra)

			return "", &errors.ExtraParameterError{Template: pattern, Params: extra}
		}
	}

	uri, err := tmpl.Expand(values)
	if err != nil {
		return "", fmt.Errorf("expand uri template %q: %w", pattern, err)
	}

	return uri, nil
}

// Read fetches uri. A missing resource is *errors.NotFoundError.
func (r *Resolver) Read(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	r.log.Debug("Reading resource", "uri", uri)

	result, err := r.source.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}

	if len(result.Contents) == 0 {
		return nil, &errors.NotFoundError{Kind: "resource", Name: uri}
	}

	return result, nil
}

// ReadTemplate finds the template named name, resolves it with params, and reads
// the resulting URI.
func (r *Resolver) ReadTemplate(
	ctx context.Context,
	name string,
	params map[string]string,
) (*mcp.ReadResourceResult, error) {
	template, err := r.FindTemplate(ctx, name)
	if err != nil {
		return nil, err
	}

	uri, err := r.Resolve(template, params)
	if err != nil {
		return nil, err
	}

	return r.Read(ctx, uri)
}

// Text concatenates the text contents of a read result.
func Text(result *mcp.ReadResourceResult) string {
	var text string

	for _, c := range result.Contents {
		text += c.Text
	}

	return text
}
