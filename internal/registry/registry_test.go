package registry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
)

func echoHandler(_ context.Context, args map[string]any) (any, error) {
	return args, nil
}

func newTestRegistry() *Registry {
	return New(slog.Default())
}

func TestRegistry_ListPreservesInsertionOrder(t *testing.T) {
	reg := newTestRegistry()

	names := []string{"zeta", "alpha", "mu", "beta"}
	for _, name := range names {
		require.NoError(t, reg.Register(Descriptor{Kind: KindTool, Name: name, Handler: echoHandler}))
	}

	for range 3 {
		got := reg.List(KindTool)
		require.Len(t, got, len(names))

		for i, d := range got {
			require.Equal(t, names[i], d.Name)
		}
	}

	require.Empty(t, reg.List(KindPrompt))
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{Kind: KindTool, Name: "get_alerts", Handler: echoHandler}))

	err := reg.Register(Descriptor{Kind: KindTool, Name: "get_alerts", Handler: echoHandler})

	dupErr, ok := stderrors.AsType[*errors.DuplicateNameError](err)
	require.True(t, ok)
	require.Equal(t, "tool", dupErr.Kind)

	// Same name, different kind is allowed.
	require.NoError(t, reg.Register(Descriptor{Kind: KindPrompt, Name: "get_alerts", Handler: echoHandler}))
}

func TestRegistry_RegisterRejectsIncompleteDescriptors(t *testing.T) {
	reg := newTestRegistry()

	tests := []struct {
		name string
		d    Descriptor
	}{
		{name: "missing kind", d: Descriptor{Name: "x", Handler: echoHandler}},
		{name: "missing name", d: Descriptor{Kind: KindTool, Handler: echoHandler}},
		{name: "missing handler", d: Descriptor{Kind: KindTool, Name: "x"}},
		{name: "resource without uri", d: Descriptor{Kind: KindResource, Name: "x", Handler: echoHandler}},
		{name: "template without pattern", d: Descriptor{Kind: KindResourceTemplate, Name: "x", Handler: echoHandler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, reg.Register(tt.d))
		})
	}
}

func TestRegistry_MissingRequiredNeverCallsHandler(t *testing.T) {
	reg := newTestRegistry()

	var calls atomic.Int32

	require.NoError(t, reg.Register(Descriptor{
		Kind: KindTool,
		Name: "get_forecast",
		Params: []Param{
			{Name: "latitude", Type: TypeNumber, Required: true},
			{Name: "longitude", Type: TypeNumber, Required: true},
		},
		Handler: func(context.Context, map[string]any) (any, error) {
			calls.Add(1)

			return "ok", nil
		},
	}))

	_, err := reg.Invoke(context.Background(), KindTool, "get_forecast", map[string]any{"latitude": 47.6})

	valErr, ok := stderrors.AsType[*errors.ValidationError](err)
	require.True(t, ok)
	require.Equal(t, "longitude", valErr.Param)
	require.Zero(t, calls.Load())
}

func TestRegistry_UnknownParameter(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{
		Kind:    KindTool,
		Name:    "get_alerts",
		Params:  []Param{{Name: "state", Required: true}},
		Handler: echoHandler,
	}))

	_, err := reg.Invoke(context.Background(), KindTool, "get_alerts", map[string]any{"state": "CA", "county": "x"})

	valErr, ok := stderrors.AsType[*errors.ValidationError](err)
	require.True(t, ok)
	require.Equal(t, "county", valErr.Param)
	require.Equal(t, "unknown parameter", valErr.Reason)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{
		Kind:    KindTool,
		Name:    "get_forecast",
		Params:  []Param{{Name: "latitude", Type: TypeNumber, Required: true}},
		Handler: echoHandler,
	}))

	_, err := reg.Invoke(context.Background(), KindTool, "get_forecast", map[string]any{"latitude": "north"})

	_, ok := stderrors.AsType[*errors.ValidationError](err)
	require.True(t, ok)
}

func TestRegistry_UnknownName(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Invoke(context.Background(), KindTool, "nope", nil)

	nfErr, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "nope", nfErr.Name)
}

func TestRegistry_HandlerErrorWrapped(t *testing.T) {
	reg := newTestRegistry()
	cause := stderrors.New("upstream down")

	require.NoError(t, reg.Register(Descriptor{
		Kind: KindTool,
		Name: "fails",
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, cause
		},
	}))

	_, err := reg.Invoke(context.Background(), KindTool, "fails", nil)

	invErr, ok := stderrors.AsType[*errors.InvocationError](err)
	require.True(t, ok)
	require.Equal(t, "fails", invErr.Name)
	require.ErrorIs(t, err, cause)
}

func TestRegistry_HandlerPanicWrapped(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{
		Kind: KindTool,
		Name: "panics",
		Handler: func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		},
	}))

	_, err := reg.Invoke(context.Background(), KindTool, "panics", nil)

	invErr, ok := stderrors.AsType[*errors.InvocationError](err)
	require.True(t, ok)
	require.Contains(t, invErr.Error(), "kaboom")

	// The registry still serves later calls.
	require.NoError(t, reg.Register(Descriptor{Kind: KindTool, Name: "ok", Handler: echoHandler}))

	_, err = reg.Invoke(context.Background(), KindTool, "ok", nil)
	require.NoError(t, err)
}

func TestRegistry_ConcurrentInvoke(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{
		Kind:    KindTool,
		Name:    "echo",
		Params:  []Param{{Name: "n", Type: TypeInteger, Required: true}},
		Handler: echoHandler,
	}))

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Go(func() {
			got, err := reg.Invoke(context.Background(), KindTool, "echo", map[string]any{"n": float64(i)})
			require.NoError(t, err)
			require.InDelta(t, float64(i), got.(map[string]any)["n"], 0)
		})

		if i%10 == 0 {
			wg.Go(func() {
				_ = reg.Register(Descriptor{Kind: KindPrompt, Name: fmt.Sprintf("p%d", i), Handler: echoHandler})
			})
		}
	}

	wg.Wait()
	require.Equal(t, 10, reg.Len(KindPrompt))
}

func TestRegistry_MatchResource(t *testing.T) {
	reg := newTestRegistry()

	require.NoError(t, reg.Register(Descriptor{
		Kind:     KindResource,
		Name:     "README",
		URI:      "file:///README.md",
		MIMEType: "text/markdown",
		Handler: func(context.Context, map[string]any) (any, error) {
			return "# readme", nil
		},
	}))
	require.NoError(t, reg.Register(Descriptor{
		Kind:        KindResourceTemplate,
		Name:        "get_sales",
		URITemplate: "resource://sales/{year}/{month}",
		MIMEType:    "application/json",
		Handler:     echoHandler,
	}))

	d, args, ok := reg.MatchResource("file:///README.md")
	require.True(t, ok)
	require.Equal(t, "README", d.Name)
	require.Empty(t, args)

	d, args, ok = reg.MatchResource("resource://sales/2024/january")
	require.True(t, ok)
	require.Equal(t, "get_sales", d.Name)
	require.Equal(t, map[string]any{"year": "2024", "month": "january"}, args)

	// Template variables become required string parameters.
	require.Equal(t, []Param{
		{Name: "year", Type: TypeString, Required: true},
		{Name: "month", Type: TypeString, Required: true},
	}, d.Params)

	result, _, err := reg.ReadResource(context.Background(), "resource://sales/2024/january")
	require.NoError(t, err)
	require.Equal(t, "january", result.(map[string]any)["month"])

	_, _, err = reg.ReadResource(context.Background(), "resource://other/thing")

	nfErr, ok := stderrors.AsType[*errors.NotFoundError](err)
	require.True(t, ok)
	require.Equal(t, "resource", nfErr.Kind)
}

type forecastArgs struct {
	Latitude  float64 `json:"latitude" jsonschema:"Latitude of the location"`
	Longitude float64 `json:"longitude" jsonschema:"Longitude of the location"`
}

func TestNewTool_DerivesParamsFromStruct(t *testing.T) {
	reg := newTestRegistry()

	d, err := NewTool("get_forecast", "Get weather forecast for a location.",
		func(_ context.Context, in forecastArgs) (*mcp.CallToolResult, error) {
			return TextResult(fmt.Sprintf("%.1f,%.1f", in.Latitude, in.Longitude)), nil
		})
	require.NoError(t, err)
	require.NoError(t, reg.Register(d))

	got, ok := reg.Lookup(KindTool, "get_forecast")
	require.True(t, ok)
	require.Equal(t, []Param{
		{Name: "latitude", Type: TypeNumber, Description: "Latitude of the location", Required: true},
		{Name: "longitude", Type: TypeNumber, Description: "Longitude of the location", Required: true},
	}, got.Params)

	result, err := reg.Invoke(context.Background(), KindTool, "get_forecast", map[string]any{
		"latitude":  47.6,
		"longitude": -122.3,
	})
	require.NoError(t, err)
	require.Equal(t, "47.6,-122.3", TextOf(result.(*mcp.CallToolResult)))
}

type routeArgs struct {
	To   string `json:"to" jsonschema:"Destination city"`
	From string `json:"from" jsonschema:"Departure city"`
	Via  string `json:"via,omitempty" jsonschema:"Optional stopover"`
}

func TestParams_KeepDeclaredOrder(t *testing.T) {
	d, err := NewTool("plan_route", "Plan a route.",
		func(_ context.Context, in routeArgs) (*mcp.CallToolResult, error) {
			return TextResult(in.From + "-" + in.To), nil
		})
	require.NoError(t, err)
	require.Equal(t, []string{"to", "from", "via"}, paramNames(ParamsFromSchema(d.Schema)))

	schema := SchemaFromParams([]Param{
		{Name: "longitude", Type: TypeNumber},
		{Name: "latitude", Type: TypeNumber},
	})
	require.Equal(t, []string{"longitude", "latitude"}, schema.PropertyOrder)

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	require.Less(t, strings.Index(string(raw), `"longitude"`), strings.Index(string(raw), `"latitude"`))

	require.Equal(t, []string{"longitude", "latitude"}, paramNames(ParamsFromSchema(schema)))

	// Properties outside the recorded order follow, sorted by name.
	schema.Properties["altitude"] = &jsonschema.Schema{Type: "number"}
	schema.Properties["bearing"] = &jsonschema.Schema{Type: "number"}
	require.Equal(t, []string{"longitude", "latitude", "altitude", "bearing"},
		paramNames(ParamsFromSchema(schema)))
}

func paramNames(params []Param) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}

	return names
}

func TestToolResult(t *testing.T) {
	res, err := ToolResult("plain")
	require.NoError(t, err)
	require.Equal(t, "plain", TextOf(res))
	require.False(t, res.IsError)

	res, err = ToolResult(map[string]int{"a": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, TextOf(res))

	res, err = ToolResult(ErrorResult("nope"))
	require.NoError(t, err)
	require.True(t, res.IsError)

	res, err = ToolResult(nil)
	require.NoError(t, err)
	require.Empty(t, res.Content)
}
