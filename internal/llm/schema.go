package llm

import (
	"github.com/invopop/jsonschema"
)

// ResponseFormat names a JSON-schema response shape for structured outputs.
type ResponseFormat struct {
	Name   string
	Schema *jsonschema.Schema
}

// FormatFor reflects a response shape from a Go struct. Every field is
// required and additional properties are rejected, which is what strict
// structured outputs demand.
func FormatFor(name string, v any) ResponseFormat {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)
	// The API expects a bare object schema, not a draft document.
	schema.Version = ""
	return ResponseFormat{Name: name, Schema: schema}
}
