package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Starlark runs programs in a hermetic in-process Starlark interpreter. Each run
// gets a fresh thread and globals; load() is disabled, so programs see only the
// predeclared json, math and struct modules.
type Starlark struct {
	timeout  time.Duration
	maxSteps uint64
	logger   *slog.Logger
}

// StarlarkOption configures NewStarlark.
type StarlarkOption func(*Starlark)

// WithStarlarkTimeout bounds the wall-clock time of one run.
func WithStarlarkTimeout(d time.Duration) StarlarkOption {
	return func(s *Starlark) { s.timeout = d }
}

// WithMaxSteps bounds the number of interpreter steps of one run. Zero means unlimited.
func WithMaxSteps(n uint64) StarlarkOption {
	return func(s *Starlark) { s.maxSteps = n }
}

// WithStarlarkLogger sets the logger for run outcomes.
func WithStarlarkLogger(l *slog.Logger) StarlarkOption {
	return func(s *Starlark) { s.logger = l }
}

// NewStarlark builds a Starlark runner (5s timeout, 1M steps by default).
func NewStarlark(opts ...StarlarkOption) *Starlark {
	s := &Starlark{timeout: 5 * time.Second, maxSteps: 1_000_000}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

var errNoLoad = errors.New("load is disabled in the sandbox")

// Language implements Runner.
func (s *Starlark) Language() string { return "starlark" }

// Run implements Runner.
func (s *Starlark) Run(ctx context.Context, source string) (res ExecutionResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Failed(fmt.Sprintf("interpreter panic: %v", p))
		}
		s.logger.DebugContext(ctx, "sandbox run", "runner", "starlark",
			"success", res.Success, "duration", time.Since(start))
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	thread := &starlark.Thread{
		Name:  "sandbox",
		Print: func(*starlark.Thread, string) {},
		Load: func(*starlark.Thread, string) (starlark.StringDict, error) {
			return nil, errNoLoad
		},
	}
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(cancelReason(ctx))
	})
	defer stop()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, "main.star", StripFences(source), predeclared())
	if err != nil {
		return Failed(errorMessage(err))
	}
	entry, ok := globals[EntryPoint]
	if !ok {
		return Failed(MissingEntryPoint)
	}
	fn, ok := entry.(starlark.Callable)
	if !ok {
		return Failed(MissingEntryPoint)
	}
	v, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return Failed(errorMessage(err))
	}
	return Succeeded(stringify(v))
}

func predeclared() starlark.StringDict {
	d := starlark.StringDict{
		"json":   json.Module,
		"math":   math.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	d.Freeze()
	return d
}

func cancelReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "execution time limit exceeded"
	}
	return "execution canceled"
}

// errorMessage renders an interpreter error; EvalError carries the call stack
// but the first line is what the model needs.
func errorMessage(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	return err.Error()
}

// stringify renders strings without quotes and everything else in Starlark syntax.
func stringify(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

var _ Runner = (*Starlark)(nil)
