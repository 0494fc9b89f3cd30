// Package agentcore is the orchestration core for LLM-driven request handlers:
// typed tool contracts, a registry that invokes them safely, and a structured
// extractor that turns model output into validated Go values.
//
// # Overview
//
// Models produce tool calls as JSON. This package turns that JSON into concrete Go
// function calls: unmarshal → validate (against the same JSON Schema shown to the
// model) → execute → marshal result or return a clear error for self-correction.
//
// Pipeline: Go function + argument struct → NewTool (reflection + schema) → Tool →
// Registry → Invoke (lookup, validate, call, marshal) → ToolResult.
//
// # Key concepts
//
//   - Single Source of Truth: one set of struct tags drives both the schema sent to
//     the model and the validation of incoming JSON.
//   - Self-Correction: ClientError carries human-readable messages back to the model.
//   - Taxonomy: every failure maps to an ErrorKind via KindOf.
//
// The planner loop lives in package agent, the completion boundary in package llm,
// and the code runner in package sandbox.
//
// # Example
//
//	type Args struct { City string `json:"city" jsonschema:"city name"` }
//	type Out  struct { Temp float64 `json:"temp"` }
//	tool, err := agentcore.NewTool("weather", "Get weather", func(_ context.Context, a Args) (Out, error) {
//	    return Out{Temp: 22.5}, nil
//	})
//	if err != nil { ... }
//	reg := agentcore.NewRegistry()
//	if err := reg.Register(tool); err != nil { ... }
//	result := reg.Invoke(ctx, agentcore.ToolCall{ID: "1", ToolName: "weather", Args: []byte(`{"city":"Moscow"}`)})
package agentcore
