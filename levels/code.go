package levels

import (
	"context"
	"fmt"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/llm"
	"github.com/skosovsky/agentcore/sandbox"
)

type goalArgs struct {
	Goal string `json:"goal" description:"What the generated program must compute"`
}

func codeSystemPrompt(language string) string {
	return fmt.Sprintf("You are a fully autonomous AI agent capable of generating and executing new code. "+
		"When given a goal, plan your workflow: first generate %[1]s code that fulfills the goal, then execute it. "+
		"Call the tool 'generate_code' with the goal to produce the code, and then call the tool '%[2]s' with the "+
		"generated code to obtain the result. If execution fails, generate corrected code and try again. "+
		"Your final output should include both the generated code and the result of executing that code.",
		language, sandbox.ToolName)
}

// GenerateCodeTool asks model for a program in language that defines main().
func GenerateCodeTool(model llm.Completer, language string) (agentcore.Tool, error) {
	return agentcore.NewTool("generate_code",
		fmt.Sprintf("Generate %s code that fulfills the given goal. The code defines a function main() "+
			"that performs the task and returns the result.", language),
		func(ctx context.Context, a goalArgs) (string, error) {
			return complete(ctx, model, fmt.Sprintf("You are an autonomous code generator. Given the following "+
				"goal, generate %s code that fulfills the goal. The code should define a function named main() "+
				"that takes no arguments, performs the required task and returns the result. "+
				"Goal: %s\n\nReturn only the code.", language, a.Goal))
		})
}

// NewCodeAgent registers generate_code and the sandboxed execute_code tool in
// reg and returns the code-writing planner.
func NewCodeAgent(model llm.Completer, reg *agentcore.Registry, runner sandbox.Runner, opts ...agent.Option) (*agent.Agent, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: nil runner", agent.ErrConfiguration)
	}
	gen, err := GenerateCodeTool(model, runner.Language())
	if err != nil {
		return nil, err
	}
	exec, err := sandbox.NewTool(runner)
	if err != nil {
		return nil, err
	}
	if err := registerAll(reg, gen, exec); err != nil {
		return nil, err
	}
	return agent.New(model, reg,
		append([]agent.Option{agent.WithSystemPrompt(codeSystemPrompt(runner.Language()))}, opts...)...)
}
