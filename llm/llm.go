// Package llm is the completion service boundary. Every prompt, tool catalog and
// response schema the planner and extractor build passes through Completer; the
// provider adapters translate it to OpenAI or Anthropic wire calls.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers with no choices or content.
var ErrEmptyResponse = errors.New("empty completion response")

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation history.
// Assistant messages may carry ToolCalls; tool messages answer one call by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
	IsError    bool
}

// ToolCall is a next-action signal: the model asks to run Name with Arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSpec describes one callable tool in the catalog sent to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ResponseFormat asks for constrained decoding into Schema.
type ResponseFormat struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
}

// Request is a single completion call.
type Request struct {
	System         string
	Messages       []Message
	Tools          []ToolSpec
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      int64
	// Model overrides the client's configured model when set.
	Model string
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
	}
}

// Response is either a final answer (Text only), a next action (ToolCalls), or a
// constrained-decoding value (Structured).
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	Structured   json.RawMessage
	Usage        Usage
	FinishReason string
}

// Completer is the single point of contact with the model provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// UserMessage builds a user history entry.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant history entry, optionally with tool calls.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage builds the observation for one tool call.
func ToolMessage(callID, toolName, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName, IsError: isError}
}
