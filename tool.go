package agentcore

import (
	"context"
	"encoding/json"
	"time"
)

// Tool is the contract for a model-callable capability.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a valid JSON Schema as map (compatible with LLM tool definitions).
	Parameters() map[string]any
	// Execute validates argsJSON against the tool's contract, runs the handler and returns
	// the JSON-encoded result.
	Execute(ctx context.Context, argsJSON []byte) ([]byte, error)
}

// ToolMetadata is implemented by tools created with NewTool and NewDynamicTool.
// Registry uses Timeout() to override the default execution timeout when set.
type ToolMetadata interface {
	Timeout() time.Duration
	Tags() []string
}

// ToolCall is a single execution request (as produced by the model).
type ToolCall struct {
	ID       string
	ToolName string
	Args     json.RawMessage // JSON payload of arguments
}

// ToolResult is the outcome of one Invoke. Exactly one of Result and Error is set.
type ToolResult struct {
	CallID   string
	ToolName string
	Result   []byte
	Error    error
	Duration time.Duration
}

// Text renders the result for a model transcript: JSON strings are unquoted,
// anything else is returned verbatim. A failed result renders its error message.
func (r ToolResult) Text() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	if len(r.Result) > 0 && r.Result[0] == '"' {
		var s string
		if err := json.Unmarshal(r.Result, &s); err == nil {
			return s
		}
	}
	return string(r.Result)
}

// ToolSummary describes one registered tool for the planner's catalog.
type ToolSummary struct {
	Name        string
	Description string
	Parameters  map[string]any
}
