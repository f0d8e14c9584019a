package resolver

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
)

type fakeSource struct {
	templates []*mcp.ResourceTemplate
	contents  map[string]string
	reads     []string
}

func (f *fakeSource) ListResourceTemplates(context.Context) ([]*mcp.ResourceTemplate, error) {
	return f.templates, nil
}

func (f *fakeSource) ReadResource(_ context.Context, uri string) (*mcp.ReadResourceResult, error) {
	f.reads = append(f.reads, uri)

	text, ok := f.contents[uri]
	if !ok {
		return nil, &errors.NotFoundError{Kind: "resource", Name: uri}
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: text}},
	}, nil
}

func salesSource() *fakeSource {
	return &fakeSource{
		templates: []*mcp.ResourceTemplate{
			{Name: "get_sales", URITemplate: "resource://sales/{year}/{month}"},
		},
		contents: map[string]string{
			"resource://sales/2024/january": `[{"units":"3"}]`,
		},
	}
}

func TestResolve_SubstitutesEveryPlaceholder(t *testing.T) {
	r := New(salesSource())

	uri, err := r.Resolve(&mcp.ResourceTemplate{URITemplate: "resource://sales/{year}/{month}"},
		map[string]string{"year": "2024", "month": "january"})
	require.NoError(t, err)
	require.Equal(t, "resource://sales/2024/january", uri)
}

func TestResolve_MissingPlaceholder(t *testing.T) {
	_, err := Resolve("resource://sales/{year}/{month}", map[string]string{"year": "2024"}, RejectExtra)

	unresolved, ok := stderrors.AsType[*errors.UnresolvedParameterError](err)
	require.True(t, ok)
	require.Equal(t, []string{"month"}, unresolved.Params)
}

func TestResolve_ExtraParamsPolicy(t *testing.T) {
	params := map[string]string{"year": "2024", "month": "january", "region": "emea", "currency": "eur"}

	_, err := Resolve("resource://sales/{year}/{month}", params, RejectExtra)

	extra, ok := stderrors.AsType[*errors.ExtraParameterError](err)
	require.True(t, ok)
	require.Equal(t, []string{"currency", "region"}, extra.Params)

	uri, err := Resolve("resource://sales/{year}/{month}", params, IgnoreExtra)
	require.NoError(t, err)
	require.Equal(t, "resource://sales/2024/january", uri)
}

func TestResolve_EscapesValues(t *testing.T) {
	uri, err := Resolve("resource://sales/{year}/{month}", map[string]string{"year": "2024", "month": "jan uary"}, RejectExtra)
	require.NoError(t, err)
	require.Equal(t, "resource://sales/2024/jan%20uary", uri)
}

func TestResolve_InvalidTemplate(t *testing.T) {
	_, err := Resolve("resource://sales/{year", nil, RejectExtra)
	require.Error(t, err)
}

func TestReadTemplate(t *testing.T) {
	source := salesSource()
	r := New(source)
	ctx := context.Background()

	result, err := r.ReadTemplate(ctx, "get_sales", map[string]string{"year": "2024", "month": "january"})
	require.NoError(t, err)
	require.JSONEq(t, `[{"units":"3"}]`, Text(result))
	require.Equal(t, []string{"resource://sales/2024/january"}, source.reads)

	_, err = r.ReadTemplate(ctx, "get_sales", map[string]string{"year": "2024", "month": "june"})

	_, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)

	_, err = r.ReadTemplate(ctx, "get_sales", map[string]string{"year": "2024"})

	_, ok = stderrors.AsType[*errors.UnresolvedParameterError](err)
	require.True(t, ok)
	require.Len(t, source.reads, 2, "unresolved template must not be read")
}

func TestFindTemplate_Unknown(t *testing.T) {
	_, err := New(salesSource()).FindTemplate(context.Background(), "get_orders")

	nfErr, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "get_orders", nfErr.Name)
}

func TestRead_EmptyContentsIsNotFound(t *testing.T) {
	source := &fakeSource{contents: map[string]string{}}
	r := New(&emptySource{fakeSource: source})

	_, err := r.Read(context.Background(), "file:///README.md")

	_, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)
}

type emptySource struct {
	*fakeSource
}

func (e *emptySource) ReadResource(context.Context, string) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}
