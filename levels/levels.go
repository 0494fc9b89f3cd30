// Package levels builds five request-handling patterns of increasing autonomy on
// top of the agentcore primitives:
//
//  1. Ask: direct question answering.
//  2. Router: constrained extraction of a route, then a fixed handler per route.
//  3. ToolSelector: the model picks one tool and fills its arguments.
//  4. NewWorkflowAgent: the planner chains data tools into a report.
//  5. NewEventAgent and NewCodeAgent: the planner drives nested model calls,
//     side effects and sandboxed generated code.
package levels

import (
	"context"
	"fmt"
	"strings"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/llm"
)

// helperTemperature is used by the lightweight completions tools make on their own.
const helperTemperature = 0.7

// Ask sends question to the model and returns its reply unchanged.
func Ask(ctx context.Context, model llm.Completer, question string) (string, error) {
	resp, err := model.Complete(ctx, llm.Request{Messages: []llm.Message{llm.UserMessage(question)}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", agentcore.ErrUpstreamService, err)
	}
	return resp.Text, nil
}

// complete is a single-prompt completion outside any planner run.
func complete(ctx context.Context, model llm.Completer, prompt string) (string, error) {
	t := helperTemperature
	resp, err := model.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.UserMessage(prompt)},
		Temperature: &t,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", agentcore.ErrUpstreamService, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func registerAll(reg *agentcore.Registry, tools ...agentcore.Tool) error {
	if reg == nil {
		return fmt.Errorf("%w: nil registry", agent.ErrConfiguration)
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
