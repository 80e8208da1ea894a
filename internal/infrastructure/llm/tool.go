package llm

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// newTool builds a tool whose input schema is reflected from T, plus the
// matching tool choice that forces the model to call it.
func newTool[T any](name, description string) (*anthropic.ToolParam, *anthropic.ToolChoiceToolParam) {
	tool := &anthropic.ToolParam{
		Name:        name,
		Description: anthropic.String(description),
		InputSchema: schemaFor[T](),
	}
	choice := &anthropic.ToolChoiceToolParam{
		Type: "tool",
		Name: name,
	}
	return tool, choice
}

func schemaFor[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}
