package registry

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// JSON schema type names accepted in Param.Type.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Param describes one named argument.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// SchemaFromParams builds an object schema from an ordered parameter list.
// An empty Type means string.
func SchemaFromParams(params []Param) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(params))
	order := make([]string, 0, len(params))
	required := make([]string, 0, len(params))

	for _, p := range params {
		prop := typeSchema(p.Type)
		prop.Description = p.Description
		properties[p.Name] = prop
		order = append(order, p.Name)

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:          "object",
		Properties:    properties,
		PropertyOrder: order,
		Required:      required,
	}
}

// typeSchema converts a type name to a JSON schema. Go type names are accepted
// alongside the JSON schema ones.
func typeSchema(typ string) *jsonschema.Schema {
	switch typ {
	case "", "string":
		return &jsonschema.Schema{Type: TypeString}
	case "integer", "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: TypeInteger}
	case "number", "float32", "float64", "float":
		return &jsonschema.Schema{Type: TypeNumber}
	case "boolean", "bool":
		return &jsonschema.Schema{Type: TypeBoolean}
	case "object", "any", "map[string]any":
		return &jsonschema.Schema{Type: TypeObject}
	case "array":
		return &jsonschema.Schema{Type: TypeArray}
	default:
		if len(typ) > 2 && typ[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  TypeArray,
				Items: typeSchema(typ[2:]),
			}
		}

		return &jsonschema.Schema{Type: TypeString}
	}
}

// ParamsFromSchema lists the properties of an object schema as parameters in
// the schema's property order. Properties missing from that order follow,
// sorted by name.
func ParamsFromSchema(schema *jsonschema.Schema) []Param {
	if schema == nil {
		return nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))

	for _, name := range schema.PropertyOrder {
		if _, ok := schema.Properties[name]; ok && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(schema.Properties)) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	params := make([]Param, 0, len(names))

	for _, name := range names {
		prop := schema.Properties[name]

		typ := prop.Type
		if typ == "" && len(prop.Types) > 0 {
			typ = prop.Types[0]
		}

		params = append(params, Param{
			Name:        name,
			Type:        typ,
			Description: prop.Description,
			Required:    required[name],
		})
	}

	return params
}

// DecodeArgs converts validated arguments into a typed value.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var v T

	data, err := json.Marshal(args)
	if err != nil {
		return v, fmt.Errorf("marshal arguments: %w", err)
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal arguments: %w", err)
	}

	return v, nil
}
