package tools

import "github.com/invopop/jsonschema"

// InputSchema is the JSON Schema object advertised for a tool's arguments.
type InputSchema struct {
	Properties any
	Required   []string
}

// GenerateSchema reflects T into an InputSchema. Fields without omitempty
// are required.
func GenerateSchema[T any]() InputSchema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return InputSchema{Properties: schema.Properties, Required: schema.Required}
}
