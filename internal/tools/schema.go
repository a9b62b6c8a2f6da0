package tools

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Param describes one property of a tool input schema.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	// Minimum applies to integer and number params when set.
	Minimum *float64
}

// Object builds an object schema from params. An empty param list still
// yields a valid object schema, which MCP requires for every tool.
func Object(params ...Param) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(params)),
	}

	for _, p := range params {
		prop := typeSchema(p.Type)
		prop.Description = p.Description
		prop.Minimum = p.Minimum

		schema.Properties[p.Name] = prop

		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return schema
}

// typeSchema converts a Go type name to a JSON Schema type.
func typeSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int64", "uint", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float64", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	}

	if len(goType) > 2 && goType[:2] == "[]" {
		return &jsonschema.Schema{
			Type:  "array",
			Items: typeSchema(goType[2:]),
		}
	}

	return &jsonschema.Schema{Type: "string"}
}

func required(name, goType, description string) Param {
	return Param{Name: name, Type: goType, Description: description, Required: true}
}

func optional(name, goType, description string) Param {
	return Param{Name: name, Type: goType, Description: description}
}

func atLeast(p Param, v float64) Param {
	p.Minimum = &v

	return p
}
