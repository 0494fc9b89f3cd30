package agentcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const dynamicSchemaURL = "schema.json"

// NewDynamicTool creates a Tool from a raw JSON Schema document and a function that receives
// validated JSON. Useful when the contract is authored by hand rather than reflected from Go.
// The schema is compiled with format assertions on (e.g. "email", "date"). Layer 1 (schema)
// validation only; the handler receives raw []byte and returns the JSON-encoded result.
func NewDynamicTool(
	name, description string,
	schemaJSON []byte,
	fn func(ctx context.Context, argsJSON []byte) ([]byte, error),
	opts ...ToolOption,
) (Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s: nil handler", ErrInvalidTool, name)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("tool %s: invalid schema document: %w", name, err)
	}
	if schemaMap == nil {
		return nil, fmt.Errorf("tool %s: schema document must be an object", name)
	}
	if o.strict {
		applyStrictMode(schemaMap)
	}
	stripSchemaIDs(schemaMap)
	compiled, err := compileDynamicSchema(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("tool %s: failed to compile dynamic schema: %w", name, err)
	}
	execute := func(ctx context.Context, argsJSON []byte) ([]byte, error) {
		v, err := jsonschema.UnmarshalJSON(bytes.NewReader(argsJSON))
		if err != nil {
			return nil, wrapJSONParseError(err)
		}
		if err := validateAgainstSchema(compiled, v); err != nil {
			return nil, err
		}
		out, err := fn(ctx, argsJSON)
		if err != nil {
			return nil, wrapHandlerError(name, err)
		}
		return out, nil
	}
	return &tool{
		name:        name,
		description: description,
		schema:      schemaMap,
		execute:     execute,
		opts:        o,
	}, nil
}

func compileDynamicSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(dynamicSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(dynamicSchemaURL)
}
