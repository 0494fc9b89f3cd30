package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/config"
	"github.com/skosovsky/agentcore/llm"
)

// app carries what every subcommand needs once the root pre-run has loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	model      string
	maxSteps   int

	each        bool
	concurrency int

	out    io.Writer
	errOut io.Writer

	newCompleter func(cfg *config.LLMConfig) (llm.Completer, error)

	cfg       *config.Config
	logger    *slog.Logger
	completer llm.Completer
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, newCompleter: llm.New}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fivelevels",
		Short: "Five levels of LLM request handling, from direct Q&A to autonomous agents",
		Long: `fivelevels runs one request through one of five patterns of increasing autonomy:
direct Q&A, routing, tool selection, a tool-chaining workflow, and autonomous
agents that plan, call tools and execute generated code in a sandbox.

Configuration is read from --config, ./fivelevels.yaml or the user config
directory, then overridden by FIVELEVELS_* environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVarP(&a.model, "model", "m", "", "Override the configured model")
	root.PersistentFlags().IntVar(&a.maxSteps, "max-steps", 0, "Override the planner step budget")

	root.AddCommand(
		newAskCmd(a),
		newRouteCmd(a),
		newToolsCmd(a),
		newWorkflowCmd(a),
		newEventCmd(a),
		newCodeCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.model != "" {
		cfg.LLM.Model = a.model
	}
	if a.maxSteps > 0 {
		cfg.Agent.MaxSteps = a.maxSteps
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	a.completer, err = a.newCompleter(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}
	return nil
}

// registry builds a registry bounded by the configured tool timeout, with logging.
func (a *app) registry() *agentcore.Registry {
	reg := agentcore.NewRegistry(
		agentcore.WithDefaultTimeout(a.cfg.Agent.ToolTimeout.Std()),
		agentcore.WithRegistryLogger(a.logger),
	)
	reg.Use(agentcore.WithLogging(a.logger))
	return reg
}

func (a *app) agentOptions() []agent.Option {
	return []agent.Option{agent.WithConfig(a.cfg.Agent), agent.WithLogger(a.logger)}
}

// shutdown waits briefly for tool goroutines that outlived their run.
func (a *app) shutdown(reg *agentcore.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := reg.Shutdown(ctx); err != nil {
		a.logger.WarnContext(ctx, "registry shutdown", "error", err)
	}
}

// input joins args, or returns fallback when none are given.
func input(args []string, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	return strings.Join(args, " ")
}
