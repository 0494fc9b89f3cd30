// Package agent implements the planner loop: given a goal and a tool registry it
// repeatedly asks the model what to do next, dispatches the requested tools,
// feeds their results back and stops at a final answer or the step budget.
//
// A run moves through the states planning, tool_dispatch, observing (back to
// planning), finalizing and done. Tool failures of any kind are observations,
// not run failures: they are recorded and the model gets another turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/llm"
)

// ErrConfiguration is returned by New for a missing completer or registry.
var ErrConfiguration = errors.New("agent: invalid configuration")

// State is a planner loop state.
type State string

const (
	StatePlanning     State = "planning"
	StateToolDispatch State = "tool_dispatch"
	StateObserving    State = "observing"
	StateFinalizing   State = "finalizing"
	StateDone         State = "done"
)

const callIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// Agent runs goals against one completer and one registry. It holds no per-run
// state, so one Agent serves any number of concurrent runs.
type Agent struct {
	model    llm.Completer
	registry *agentcore.Registry
	opts     options
}

// New builds an agent.
func New(model llm.Completer, registry *agentcore.Registry, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil completer", ErrConfiguration)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrConfiguration)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Agent{model: model, registry: registry, opts: o}, nil
}

// Result is the outcome of a run. On failure it holds the partial trace.
type Result struct {
	RunID  string
	Answer string
	Trace  Trace
	Turns  int
	State  State
	Usage  llm.Usage
}

// RunError is the structured failure of a run: the taxonomy kind, a message and
// the trace recorded up to the failure.
type RunError struct {
	RunID   string
	Kind    agentcore.ErrorKind
	Message string
	Trace   Trace
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed (%s): %s", e.RunID, e.Kind, e.Message)
}

func (e *RunError) Unwrap() error { return e.Err }

// Run plans and executes goal until the model answers. initial is rendered into
// the user prompt and exposed to tool handlers through InitialContext.
//
// Run never panics. Errors are always *RunError: MaxStepsExceeded when the
// budget runs out, UpstreamServiceError when a completion fails, Canceled when
// ctx ends.
func (a *Agent) Run(ctx context.Context, goal string, initial map[string]any) (res Result, err error) {
	r := &run{
		agent:  a,
		id:     uuid.NewString(),
		rec:    NewRecorder(a.opts.observer),
		state:  StatePlanning,
		logger: a.opts.logger,
	}
	r.logger = r.logger.With("run_id", r.id)
	defer func() {
		if p := recover(); p != nil {
			res, err = r.fail(ctx, agentcore.KindInternal, fmt.Errorf("panic in planner loop: %v", p))
		}
	}()
	return r.loop(withInitialContext(ctx, initial), goal, initial)
}

// run is the state of one in-flight Run.
type run struct {
	agent  *Agent
	id     string
	rec    *Recorder
	state  State
	turn   int
	usage  llm.Usage
	logger *slog.Logger
}

func (r *run) loop(ctx context.Context, goal string, initial map[string]any) (Result, error) {
	opts := r.agent.opts
	r.rec.Append(Step{Kind: StepPrompt, Role: RoleSystem, Content: opts.systemPrompt})
	r.rec.Append(Step{Kind: StepPrompt, Role: llm.RoleUser, Content: userPrompt(goal, initial)})
	tools := r.agent.registry.ToolSpecs()

	for r.turn < opts.maxSteps {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, agentcore.KindCanceled, fmt.Errorf("%w: %w", agentcore.ErrCanceled, err))
		}
		r.turn++
		r.transition(ctx, StatePlanning)

		resp, err := r.plan(ctx, tools)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.fail(ctx, agentcore.KindCanceled, fmt.Errorf("%w: %w", agentcore.ErrCanceled, ctxErr))
			}
			return r.fail(ctx, agentcore.KindUpstreamServiceError, fmt.Errorf("%w: %w", agentcore.ErrUpstreamService, err))
		}
		r.usage = r.usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			r.transition(ctx, StateFinalizing)
			r.rec.Append(Step{Turn: r.turn, Kind: StepFinal, Role: llm.RoleAssistant, Content: resp.Text})
			r.transition(ctx, StateDone)
			return r.result(resp.Text), nil
		}

		r.transition(ctx, StateToolDispatch)
		for _, call := range resp.ToolCalls {
			r.dispatch(ctx, resp.Text, call)
			if err := ctx.Err(); err != nil {
				return r.fail(ctx, agentcore.KindCanceled, fmt.Errorf("%w: %w", agentcore.ErrCanceled, err))
			}
		}
		r.transition(ctx, StateObserving)
	}

	r.transition(ctx, StateFinalizing)
	return r.fail(ctx, agentcore.KindMaxStepsExceeded,
		fmt.Errorf("%w: no final answer after %d turns", agentcore.ErrMaxStepsExceeded, r.turn))
}

func (r *run) plan(ctx context.Context, tools []llm.ToolSpec) (llm.Response, error) {
	opts := r.agent.opts
	if opts.completionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.completionTimeout)
		defer cancel()
	}
	return r.agent.model.Complete(ctx, llm.Request{
		System:      opts.systemPrompt,
		Messages:    r.rec.Trace().Messages(),
		Tools:       tools,
		Temperature: opts.temperature,
		MaxTokens:   opts.maxTokens,
	})
}

// dispatch records the call, invokes the tool and records its return. Unknown
// tools, invalid arguments, handler faults and timeouts all become failed returns.
func (r *run) dispatch(ctx context.Context, text string, call llm.ToolCall) {
	if call.ID == "" {
		call.ID = "call_" + gonanoid.MustGenerate(callIDCharset, 8)
	}
	r.rec.Append(Step{
		Turn: r.turn, Kind: StepToolCall, Role: llm.RoleAssistant, Content: text,
		ToolName: call.Name, CallID: call.ID, Args: call.Arguments,
	})
	r.logger.DebugContext(ctx, "tool dispatch", "turn", r.turn, "tool", call.Name, "call_id", call.ID)

	if d := r.agent.opts.toolTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	res := r.agent.registry.Invoke(ctx, agentcore.ToolCall{ID: call.ID, ToolName: call.Name, Args: call.Arguments})

	step := Step{
		Turn: r.turn, Kind: StepToolReturn, Role: llm.RoleTool, Content: res.Text(),
		ToolName: call.Name, CallID: call.ID,
	}
	if res.Error != nil {
		step.Error = res.Error.Error()
		step.ErrorKind = agentcore.KindOf(res.Error)
		r.logger.InfoContext(ctx, "tool failed", "turn", r.turn, "tool", call.Name,
			"kind", step.ErrorKind, "error", res.Error)
	}
	r.rec.Append(step)
}

func (r *run) transition(ctx context.Context, s State) {
	r.state = s
	r.logger.DebugContext(ctx, "agent state", "turn", r.turn, "state", s)
}

func (r *run) result(answer string) Result {
	return Result{
		RunID:  r.id,
		Answer: answer,
		Trace:  r.rec.Trace(),
		Turns:  r.turn,
		State:  r.state,
		Usage:  r.usage,
	}
}

func (r *run) fail(ctx context.Context, kind agentcore.ErrorKind, err error) (Result, error) {
	res := r.result("")
	r.logger.WarnContext(ctx, "run failed", "kind", kind, "turns", r.turn, "error", err)
	return res, &RunError{RunID: r.id, Kind: kind, Message: err.Error(), Trace: res.Trace, Err: err}
}

// userPrompt renders the goal followed by the caller's context, keys sorted.
func userPrompt(goal string, initial map[string]any) string {
	if len(initial) == 0 {
		return goal
	}
	var b strings.Builder
	b.WriteString(goal)
	b.WriteString("\n\nContext:")
	for _, k := range slices.Sorted(maps.Keys(initial)) {
		fmt.Fprintf(&b, "\n- %s: %v", k, initial[k])
	}
	return b.String()
}
