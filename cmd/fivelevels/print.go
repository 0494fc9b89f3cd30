package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/skosovsky/agentcore/agent"
)

const stepRule = "--------------------------------------------------"

func printTrace(w io.Writer, trace agent.Trace) {
	fmt.Fprint(w, "\n--- Steps Taken ---\n\n")
	for _, s := range trace {
		fmt.Fprintf(w, "Step %d [%s]:\n", s.Index+1, s.Kind)
		fmt.Fprintln(w, "  "+describeStep(s))
		fmt.Fprintln(w, stepRule)
	}
	fmt.Fprintln(w, "\n--- End of Steps ---")
}

func describeStep(s agent.Step) string {
	switch s.Kind {
	case agent.StepPrompt:
		if s.Role == agent.RoleSystem {
			return "System-prompt: " + s.Content
		}
		return "User-prompt: " + s.Content
	case agent.StepToolCall:
		return fmt.Sprintf("Tool Call: %s with args: %s", s.ToolName, s.Args)
	case agent.StepToolReturn:
		if s.Failed() {
			return fmt.Sprintf("Tool Return (%s) failed [%s]: %s", s.ToolName, s.ErrorKind, s.Error)
		}
		return fmt.Sprintf("Tool Return (%s): %s", s.ToolName, s.Content)
	default:
		return "Text: " + strings.TrimSpace(s.Content)
	}
}
