package agentcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_Simple(t *testing.T) {
	type Args struct {
		Name  string `json:"name" jsonschema:"the customer name"`
		Count int    `json:"count,omitempty"`
	}
	schema, resolved, err := generateSchema[Args](false)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "name")
	require.Contains(t, props, "count")
	name := props["name"].(map[string]any)
	assert.Equal(t, "the customer name", name["description"])
	assert.Contains(t, schema["required"], "name")
	assert.NotContains(t, schema["required"], "count")
}

func TestGenerateSchema_TagEnrichment(t *testing.T) {
	type Args struct {
		Route int     `json:"route" enum:"1, 2" description:"which handler"`
		Unit  string  `json:"unit" enum:"celsius,fahrenheit"`
		Ratio float64 `json:"ratio" enum:"0.5,1.5"`
		Skip  string  `json:"-" description:"ignored"`
	}
	schema, resolved, err := generateSchema[Args](false)
	require.NoError(t, err)
	props := schema["properties"].(map[string]any)
	route := props["route"].(map[string]any)
	assert.Equal(t, "which handler", route["description"])
	assert.Equal(t, []any{int64(1), int64(2)}, route["enum"])
	assert.Equal(t, []any{"celsius", "fahrenheit"}, props["unit"].(map[string]any)["enum"])
	assert.Equal(t, []any{0.5, 1.5}, props["ratio"].(map[string]any)["enum"])
	assert.NotContains(t, props, "Skip")

	require.NoError(t, resolved.Validate(map[string]any{"route": 2.0, "unit": "celsius", "ratio": 0.5}))
	require.Error(t, resolved.Validate(map[string]any{"route": 3.0, "unit": "celsius", "ratio": 0.5}))
}

func TestGenerateSchema_StrictMode(t *testing.T) {
	type Inner struct {
		V string `json:"v,omitempty"`
	}
	type Args struct {
		A     string `json:"a"`
		Inner Inner  `json:"inner"`
	}
	schema, _, err := generateSchema[Args](true)
	require.NoError(t, err)
	assert.Equal(t, false, schema["additionalProperties"])
	inner := schema["properties"].(map[string]any)["inner"].(map[string]any)
	assert.Equal(t, false, inner["additionalProperties"], "nested objects are strict too")
	assert.Equal(t, []any{"v"}, inner["required"])
}

func TestApplyStrictMode(t *testing.T) {
	m := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"b": map[string]any{"type": "string"},
			"a": map[string]any{"type": "string"},
		},
		"$defs": map[string]any{
			"empty": map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
	applyStrictMode(m)
	assert.Equal(t, false, m["additionalProperties"])
	assert.Equal(t, []any{"a", "b"}, m["required"], "sorted for deterministic output")
	empty := m["$defs"].(map[string]any)["empty"].(map[string]any)
	assert.Equal(t, false, empty["additionalProperties"])
	assert.NotContains(t, empty, "required")
}

func TestStripSchemaIDs(t *testing.T) {
	m := map[string]any{
		"$id": "root",
		"properties": map[string]any{
			"x": map[string]any{"id": "nested", "type": "string"},
		},
	}
	stripSchemaIDs(m)
	assert.NotContains(t, m, "$id")
	assert.NotContains(t, m["properties"].(map[string]any)["x"], "id")
}

func TestCloneSchema(t *testing.T) {
	m := map[string]any{"properties": map[string]any{"x": map[string]any{"type": "string"}}}
	c, err := cloneSchema(m)
	require.NoError(t, err)
	c["properties"].(map[string]any)["x"] = "changed"
	assert.Equal(t, map[string]any{"type": "string"}, m["properties"].(map[string]any)["x"])
}

func TestSchemaType(t *testing.T) {
	assert.Equal(t, "integer", schemaType(map[string]any{"type": "integer"}))
	assert.Equal(t, "object", schemaType(map[string]any{"type": []any{"null", "object"}}))
	assert.Empty(t, schemaType(map[string]any{}))
}
