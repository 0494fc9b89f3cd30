package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/levels"
	"github.com/skosovsky/agentcore/sandbox"
)

const (
	defaultQuestion      = "What is the capital of France?"
	defaultRouteQuestion = "What is my phone number?"
	defaultToolsQuestion = "What is the return policy?"
	defaultWorkflowQuery = "I need a comprehensive report on our monthly sales performance."
	defaultEventEmail    = "Subject: Event Inquiry\n\nHello,\nCould you please tell me what the schedule for " +
		"Tech Expo 2025 is?\nThanks,\nBob"
	defaultCodeGoal = "Write a program that computes the first 15 Fibonacci numbers and returns them " +
		"formatted as a comma separated string."
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Level 1: answer a question directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := levels.Ask(cmd.Context(), a.completer, input(args, defaultQuestion))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, answer)
			return nil
		},
	}
}

func newRouteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route [question]",
		Short: "Level 2: route a question to the database or the FAQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := levels.NewRouter(a.completer, levels.WithRouterLogger(a.logger))
			if err != nil {
				return err
			}
			routed, err := r.Route(cmd.Context(), input(args, defaultRouteQuestion))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Route: %d\n%s\n", routed.Decision.Route, routed.Answer)
			return nil
		},
	}
}

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools [question]",
		Short: "Level 3: let the model pick a tool and fill its arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := levels.NewToolSelector(a.completer, a.logger)
			if err != nil {
				return err
			}
			defer a.shutdown(s.Registry())
			sel, err := s.Select(cmd.Context(), input(args, defaultToolsQuestion))
			if err != nil {
				return err
			}
			if sel.Tool != "" {
				fmt.Fprintf(a.out, "Using %s with args: %s\n", sel.Tool, sel.Args)
			}
			fmt.Fprintln(a.out, sel.Answer)
			return nil
		},
	}
}

func newWorkflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow [query]",
		Short: "Level 4: chain data tools into a sales report",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.registry()
			defer a.shutdown(reg)
			ag, err := levels.NewWorkflowAgent(a.completer, reg, a.agentOptions()...)
			if err != nil {
				return err
			}
			return a.runAgent(cmd.Context(), ag, a.goals(args, defaultWorkflowQuery))
		},
	}
	a.addBatchFlags(cmd)
	return cmd
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event [email]",
		Short: "Level 5: process an event signup or FAQ email autonomously",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.registry()
			defer a.shutdown(reg)
			ag, err := levels.NewEventAgent(a.completer, reg, levels.LogMailer{Logger: a.logger}, a.agentOptions()...)
			if err != nil {
				return err
			}
			return a.runAgent(cmd.Context(), ag, a.goals(args, defaultEventEmail))
		},
	}
	a.addBatchFlags(cmd)
	return cmd
}

func newCodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code [goal]",
		Short: "Level 5+: generate a program and execute it in the sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := sandbox.New(a.cfg.Sandbox, a.logger)
			if err != nil {
				return err
			}
			reg := a.registry()
			defer a.shutdown(reg)
			ag, err := levels.NewCodeAgent(a.completer, reg, runner, a.agentOptions()...)
			if err != nil {
				return err
			}
			return a.runAgent(cmd.Context(), ag, a.goals(args, defaultCodeGoal))
		},
	}
	a.addBatchFlags(cmd)
	return cmd
}

// addBatchFlags lets an agent subcommand run each argument as its own goal.
func (a *app) addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.each, "each", false, "Run every argument as a separate goal")
	cmd.Flags().IntVar(&a.concurrency, "concurrency", 1, "Maximum goals run at once with --each")
}

func (a *app) goals(args []string, fallback string) []string {
	if a.each && len(args) > 0 {
		return args
	}
	return []string{input(args, fallback)}
}

// runAgent runs goals and prints each answer with its trace; a failed run still
// prints its partial trace. Several goals run concurrently through RunAll.
func (a *app) runAgent(ctx context.Context, ag *agent.Agent, goals []string) error {
	if len(goals) == 1 {
		res, err := ag.Run(ctx, goals[0], nil)
		return a.printOutcome(ctx, res, err)
	}
	var errs []error
	for i, o := range ag.RunAll(ctx, goals, a.concurrency) {
		fmt.Fprintf(a.out, "=== Goal %d: %s ===\n", i+1, o.Goal)
		if err := a.printOutcome(ctx, o.Result, o.Err); err != nil {
			errs = append(errs, fmt.Errorf("goal %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) printOutcome(ctx context.Context, res agent.Result, err error) error {
	if err != nil {
		var runErr *agent.RunError
		if errors.As(err, &runErr) {
			fmt.Fprintf(a.out, "Run failed (%s): %s\n", runErr.Kind, runErr.Message)
			printTrace(a.out, runErr.Trace)
		}
		if agentcore.KindOf(err) == agentcore.KindCanceled {
			a.logger.InfoContext(ctx, "interrupted")
		}
		return err
	}
	fmt.Fprintln(a.out, "Final Output:")
	fmt.Fprintln(a.out, res.Answer)
	printTrace(a.out, res.Trace)
	return nil
}
