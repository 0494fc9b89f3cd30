package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/skosovsky/agentcore/llm"
)

// ErrScriptExhausted is returned when a ScriptedCompleter runs out of replies.
var ErrScriptExhausted = errors.New("scripted completer: no replies left")

// Reply is one scripted completion outcome.
type Reply struct {
	Response llm.Response
	Err      error
}

// ScriptedCompleter replays Replies in order and records every request.
// With Repeat set, the last reply is returned forever once the script ends.
type ScriptedCompleter struct {
	Replies []Reply
	Repeat  bool

	mu       sync.Mutex
	next     int
	requests []llm.Request
}

// NewScriptedCompleter builds a completer from replies.
func NewScriptedCompleter(replies ...Reply) *ScriptedCompleter {
	return &ScriptedCompleter{Replies: replies}
}

// Complete implements llm.Completer. It honors ctx cancellation before answering.
func (s *ScriptedCompleter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if s.next >= len(s.Replies) {
		if !s.Repeat || len(s.Replies) == 0 {
			return llm.Response{}, ErrScriptExhausted
		}
		r := s.Replies[len(s.Replies)-1]
		return r.Response, r.Err
	}
	r := s.Replies[s.next]
	s.next++
	return r.Response, r.Err
}

// Requests returns a copy of the requests seen so far.
func (s *ScriptedCompleter) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// Calls reports how many completions were requested.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Final is a final-answer reply.
func Final(text string) Reply {
	return Reply{Response: llm.Response{Text: text, FinishReason: "stop"}}
}

// CallTool is a next-action reply requesting one tool. args is marshaled to JSON
// unless it is already a string or []byte.
func CallTool(id, name string, args any) Reply {
	return Reply{Response: llm.Response{
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: mustJSON(args)}},
		FinishReason: "tool_calls",
	}}
}

// CallTools is a next-action reply requesting several tools in one turn.
func CallTools(calls ...llm.ToolCall) Reply {
	return Reply{Response: llm.Response{ToolCalls: calls, FinishReason: "tool_calls"}}
}

// Structured is a constrained-decoding reply carrying v as JSON.
func Structured(v any) Reply {
	return Reply{Response: llm.Response{Structured: mustJSON(v), FinishReason: "stop"}}
}

// Fail is a reply that fails with err.
func Fail(err error) Reply {
	return Reply{Err: err}
}

func mustJSON(v any) json.RawMessage {
	switch x := v.(type) {
	case nil:
		return json.RawMessage(`{}`)
	case string:
		return json.RawMessage(x)
	case []byte:
		return json.RawMessage(x)
	case json.RawMessage:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal %T: %v", v, err))
	}
	return b
}

var _ llm.Completer = (*ScriptedCompleter)(nil)
