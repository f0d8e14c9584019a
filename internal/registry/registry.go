package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/yosida95/uritemplate/v3"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
)

// Kind is the capability kind a descriptor belongs to.
type Kind int

const (
	KindTool Kind = iota + 1
	KindResource
	KindResourceTemplate
	KindPrompt
)

// Kinds lists every capability kind.
var Kinds = []Kind{KindTool, KindResource, KindResourceTemplate, KindPrompt}

func (k Kind) String() string {
	switch k {
	case KindTool:
		return "tool"
	case KindResource:
		return "resource"
	case KindResourceTemplate:
		return "resource-template"
	case KindPrompt:
		return "prompt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindTool && k <= KindPrompt
}

// Handler executes a capability. args holds validated arguments; for resource
// templates they are the values matched from the URI.
//
// Return values by kind:
//   - tool: *mcp.CallToolResult, string, or any JSON-marshalable value
//   - resource, resource-template: string, []byte, or any JSON-marshalable value
//   - prompt: *mcp.GetPromptResult, []*mcp.PromptMessage, or string
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor declares one capability.
type Descriptor struct {
	Kind        Kind
	Name        string
	Title       string
	Description string

	// Params is the ordered parameter list. For resource templates it defaults
	// to one required string parameter per template variable.
	Params []Param

	// Schema overrides the schema derived from Params. Params are then derived
	// from the schema's properties when not given.
	Schema *jsonschema.Schema

	// URI identifies a static resource.
	URI string

	// URITemplate is the RFC 6570 pattern of a resource template.
	URITemplate string

	MIMEType string

	Handler Handler

	resolved *jsonschema.Resolved
	template *uritemplate.Template
}

// InputSchema returns the JSON schema describing the descriptor's arguments.
func (d *Descriptor) InputSchema() *jsonschema.Schema {
	return d.Schema
}

type descriptorKey struct {
	kind Kind
	name string
}

// Registry is a tagged-variant table of capability descriptors.
type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	order map[Kind][]*Descriptor
	index map[descriptorKey]*Descriptor
}

// New creates an empty registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:   log.With("component", "registry"),
		order: make(map[Kind][]*Descriptor, len(Kinds)),
		index: make(map[descriptorKey]*Descriptor, 16),
	}
}

// Register adds a descriptor. It fails with *errors.DuplicateNameError if the
// kind already has a descriptor of that name.
func (r *Registry) Register(d Descriptor) error {
	if !d.Kind.valid() {
		return fmt.Errorf("register %q: invalid kind %s", d.Name, d.Kind)
	}

	if d.Name == "" {
		return fmt.Errorf("register %s: name is required", d.Kind)
	}

	if d.Handler == nil {
		return fmt.Errorf("register %s %q: handler is required", d.Kind, d.Name)
	}

	if err := d.prepare(); err != nil {
		return fmt.Errorf("register %s %q: %w", d.Kind, d.Name, err)
	}

	key := descriptorKey{kind: d.Kind, name: d.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[key]; exists {
		return &errors.DuplicateNameError{Kind: d.Kind.String(), Name: d.Name}
	}

	stored := d
	r.index[key] = &stored
	r.order[d.Kind] = append(r.order[d.Kind], &stored)

	r.log.Debug("Registered capability", "kind", d.Kind, "name", d.Name)

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// prepare validates kind-specific fields and resolves the parameter schema.
func (d *Descriptor) prepare() error {
	switch d.Kind {
	case KindResource:
		if d.URI == "" {
			return fmt.Errorf("uri is required")
		}
	case KindResourceTemplate:
		if d.URITemplate == "" {
			return fmt.Errorf("uri template is required")
		}

		tmpl, err := uritemplate.New(d.URITemplate)
		if err != nil {
			return fmt.Errorf("parse uri template: %w", err)
		}

		d.template = tmpl

		if len(d.Params) == 0 && d.Schema == nil {
			for _, name := range tmpl.Varnames() {
				d.Params = append(d.Params, Param{Name: name, Type: TypeString, Required: true})
			}
		}
	}

	switch {
	case d.Schema != nil && len(d.Params) == 0:
		d.Params = ParamsFromSchema(d.Schema)
	case d.Schema == nil:
		d.Schema = SchemaFromParams(d.Params)
	}

	resolved, err := d.Schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	d.resolved = resolved
	d.Params = slices.Clone(d.Params)

	return nil
}

// List returns the descriptors of one kind in registration order.
func (r *Registry) List(kind Kind) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.order[kind]))
	for _, d := range r.order[kind] {
		result = append(result, *d)
	}

	return result
}

// Len returns the number of descriptors of one kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order[kind])
}

// Lookup finds a descriptor by kind and name.
func (r *Registry) Lookup(kind Kind, name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.index[descriptorKey{kind: kind, name: name}]
	if !ok {
		return Descriptor{}, false
	}

	return *d, true
}

// Invoke validates args against the named descriptor and runs its handler.
//
// Errors are *errors.NotFoundError for an unknown name, *errors.ValidationError
// for bad arguments (the handler is not called), and *errors.InvocationError
// wrapping whatever the handler returned or panicked with.
func (r *Registry) Invoke(ctx context.Context, kind Kind, name string, args map[string]any) (any, error) {
	d, ok := r.Lookup(kind, name)
	if !ok {
		return nil, &errors.NotFoundError{Kind: kind.String(), Name: name}
	}

	return d.invoke(ctx, args)
}

func (d *Descriptor) invoke(ctx context.Context, args map[string]any) (result any, err error) {
	if args == nil {
		args = map[string]any{}
	}

	if err := d.Validate(args); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &errors.InvocationError{Kind: d.Kind.String(), Name: d.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	result, err = d.Handler(ctx, args)
	if err != nil {
		return nil, &errors.InvocationError{Kind: d.Kind.String(), Name: d.Name, Err: err}
	}

	return result, nil
}

// Validate checks args against the descriptor's parameters: unknown names,
// missing required parameters, then schema types.
func (d *Descriptor) Validate(args map[string]any) error {
	known := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		known[p.Name] = struct{}{}
	}

	for _, name := range slices.Sorted(maps.Keys(args)) {
		if _, ok := known[name]; !ok {
			return d.validationError(name, "unknown parameter", nil)
		}
	}

	for _, p := range d.Params {
		if _, ok := args[p.Name]; !ok && p.Required {
			return d.validationError(p.Name, "missing required parameter", nil)
		}
	}

	if d.resolved != nil {
		if err := d.resolved.Validate(args); err != nil {
			return d.validationError("", err.Error(), err)
		}
	}

	return nil
}

func (d *Descriptor) validationError(param, reason string, cause error) error {
	return &errors.ValidationError{Kind: d.Kind.String(), Name: d.Name, Param: param, Reason: reason, Err: cause}
}

// Match reports whether uri names this resource, returning the template values.
func (d *Descriptor) Match(uri string) (map[string]any, bool) {
	switch d.Kind {
	case KindResource:
		return map[string]any{}, d.URI == uri
	case KindResourceTemplate:
		if d.template == nil {
			return nil, false
		}

		values := d.template.Match(uri)
		if values == nil {
			return nil, false
		}

		args := make(map[string]any, len(values))
		for _, name := range d.template.Varnames() {
			if v, ok := values[name]; ok {
				args[name] = v.String()
			}
		}

		return args, true
	default:
		return nil, false
	}
}

// MatchResource finds the descriptor serving uri: an exact static resource first,
// then templates in registration order.
func (r *Registry) MatchResource(uri string) (Descriptor, map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range []Kind{KindResource, KindResourceTemplate} {
		for _, d := range r.order[kind] {
			if args, ok := d.Match(uri); ok {
				return *d, args, true
			}
		}
	}

	return Descriptor{}, nil, false
}

// ReadResource resolves uri and runs the matching handler.
func (r *Registry) ReadResource(ctx context.Context, uri string) (any, Descriptor, error) {
	d, args, ok := r.MatchResource(uri)
	if !ok {
		return nil, Descriptor{}, &errors.NotFoundError{Kind: KindResource.String(), Name: uri}
	}

	result, err := d.invoke(ctx, args)

	return result, d, err
}
