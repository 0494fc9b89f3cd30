package sandbox

import (
	"context"
	"fmt"

	"github.com/skosovsky/agentcore"
)

// ToolName is the registered name of the code execution tool.
const ToolName = "execute_code"

// CodeArgs is the input of the code execution tool.
type CodeArgs struct {
	Code string `json:"code" description:"Complete program source defining a zero-argument main() that returns the answer" validate:"required"`
}

// NewTool exposes runner as the execute_code tool. A successful run returns the
// entry point's value; a failed run surfaces as *agentcore.SandboxError so the
// planner can observe it and regenerate the program.
func NewTool(runner Runner, opts ...agentcore.ToolOption) (agentcore.Tool, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: nil runner", agentcore.ErrInvalidTool)
	}
	desc := fmt.Sprintf("Execute a %s program in an isolated sandbox. The program must define main() "+
		"taking no arguments; its return value is the result.", runner.Language())
	return agentcore.NewTool(ToolName, desc, func(ctx context.Context, args CodeArgs) (string, error) {
		res := runner.Run(ctx, args.Code)
		if !res.Success {
			return "", &agentcore.SandboxError{Message: res.Error}
		}
		return res.Value, nil
	}, opts...)
}
