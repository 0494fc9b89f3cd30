package agent

import (
	"log/slog"
	"time"

	"github.com/skosovsky/agentcore/config"
)

const (
	defaultMaxSteps     = 10
	defaultSystemPrompt = "You are a helpful assistant that achieves the user's goal step by step. " +
		"Call the available tools when they help. When a tool call fails, read the error and try again " +
		"with corrected arguments or a different tool. When you have the final answer, reply with it " +
		"directly without calling any tool."
)

// Option configures an Agent.
type Option func(*options)

type options struct {
	systemPrompt      string
	maxSteps          int
	completionTimeout time.Duration
	toolTimeout       time.Duration
	temperature       *float64
	maxTokens         int64
	logger            *slog.Logger
	observer          func(Step)
}

func defaultOptions() options {
	return options{
		systemPrompt: defaultSystemPrompt,
		maxSteps:     defaultMaxSteps,
		logger:       slog.Default(),
	}
}

// WithSystemPrompt replaces the planner's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithMaxSteps caps the number of planning turns of one run. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithCompletionTimeout bounds each completion call. Zero means no limit beyond ctx.
func WithCompletionTimeout(d time.Duration) Option {
	return func(o *options) { o.completionTimeout = d }
}

// WithToolTimeout bounds each tool invocation on top of the registry's own timeout.
func WithToolTimeout(d time.Duration) Option {
	return func(o *options) { o.toolTimeout = d }
}

// WithTemperature sets the sampling temperature of planning calls.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = &t }
}

// WithMaxTokens caps the completion length of planning calls.
func WithMaxTokens(n int64) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithLogger sets the logger for state transitions. nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStepObserver registers fn to see every trace step as it is appended.
func WithStepObserver(fn func(Step)) Option {
	return func(o *options) { o.observer = fn }
}

// WithConfig applies the loop bounds from cfg.
func WithConfig(cfg config.AgentConfig) Option {
	return func(o *options) {
		if cfg.MaxSteps > 0 {
			o.maxSteps = cfg.MaxSteps
		}
		o.completionTimeout = cfg.CompletionTimeout.Std()
		o.toolTimeout = cfg.ToolTimeout.Std()
	}
}
