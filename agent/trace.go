package agent

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/llm"
)

// StepKind classifies a trace entry.
type StepKind string

const (
	StepPrompt     StepKind = "prompt"
	StepToolCall   StepKind = "tool-call"
	StepToolReturn StepKind = "tool-return"
	StepFinal      StepKind = "final"
)

// RoleSystem marks the prompt step holding the system prompt.
const RoleSystem llm.Role = "system"

// Step is one immutable trace entry.
type Step struct {
	Index     int
	Turn      int
	Kind      StepKind
	Role      llm.Role
	Content   string
	ToolName  string
	CallID    string
	Args      json.RawMessage
	Error     string
	ErrorKind agentcore.ErrorKind
	At        time.Time
}

// Failed reports whether s is a tool return carrying an error.
func (s Step) Failed() bool { return s.Kind == StepToolReturn && s.Error != "" }

// Trace is the ordered record of one run.
type Trace []Step

// Messages renders the trace as completion history. The system prompt is sent
// separately and is skipped; all tool calls of one turn become a single assistant
// message, followed by one tool message per return.
func (t Trace) Messages() []llm.Message {
	msgs := make([]llm.Message, 0, len(t))
	emitted := -1
	for _, s := range t {
		switch s.Kind {
		case StepPrompt:
			if s.Role == RoleSystem {
				continue
			}
			msgs = append(msgs, llm.UserMessage(s.Content))
		case StepToolCall:
			if s.Turn == emitted {
				continue
			}
			emitted = s.Turn
			var calls []llm.ToolCall
			for _, c := range t {
				if c.Kind == StepToolCall && c.Turn == s.Turn {
					calls = append(calls, llm.ToolCall{ID: c.CallID, Name: c.ToolName, Arguments: c.Args})
				}
			}
			msgs = append(msgs, llm.AssistantMessage(s.Content, calls...))
		case StepToolReturn:
			msgs = append(msgs, llm.ToolMessage(s.CallID, s.ToolName, s.Content, s.Failed()))
		case StepFinal:
			msgs = append(msgs, llm.AssistantMessage(s.Content))
		}
	}
	return msgs
}

// ToolCalls returns the tool-call steps in order.
func (t Trace) ToolCalls() Trace {
	return t.filter(func(s Step) bool { return s.Kind == StepToolCall })
}

// Failures returns the failed tool-return steps in order.
func (t Trace) Failures() Trace {
	return t.filter(Step.Failed)
}

// Final returns the final-answer step, if the run produced one.
func (t Trace) Final() (Step, bool) {
	i := slices.IndexFunc(t, func(s Step) bool { return s.Kind == StepFinal })
	if i < 0 {
		return Step{}, false
	}
	return t[i], true
}

func (t Trace) filter(keep func(Step) bool) Trace {
	var out Trace
	for _, s := range t {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Recorder is an append-only trace owned by one run. It is safe for concurrent
// use so observers and callers may read it while the run is in progress.
type Recorder struct {
	mu       sync.Mutex
	steps    Trace
	observer func(Step)
}

// NewRecorder returns an empty recorder. observer, when non-nil, sees every
// appended step synchronously.
func NewRecorder(observer func(Step)) *Recorder {
	return &Recorder{observer: observer}
}

// Append stamps s with its index and time and appends it.
func (r *Recorder) Append(s Step) Step {
	r.mu.Lock()
	s.Index = len(r.steps)
	s.At = time.Now()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
	if r.observer != nil {
		r.observer(s)
	}
	return s
}

// Trace returns a copy of the steps recorded so far.
func (r *Recorder) Trace() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.steps)
}

// Len reports the number of recorded steps.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}
