package agentcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/skosovsky/agentcore/llm"
)

// ErrShutdown is returned by Invoke after Shutdown was called.
var ErrShutdown = errors.New("registry is shut down")

// Registry holds tools and invokes them with timeout, semaphore, and optional panic recovery.
// Registration happens at startup; during a run the registry is read-only and safe for
// concurrent use by independent runs.
type Registry struct {
	tools       map[string]Tool // wrapped with middlewares, used by Invoke
	rawTools    map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	sem         chan struct{}
	opts        registryOptions
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        30 * time.Second,
		maxConcurrency: 10,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		rawTools: make(map[string]Tool),
		sem:      sem,
		opts:     o,
		done:     make(chan struct{}),
	}
}

// Register adds a tool. Stored middlewares (see Use) are applied to the tool before registration.
// A nil tool or empty name fails with ErrInvalidTool; a name already present fails with
// ErrDuplicateTool. On failure the registry is unchanged.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rawTools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.rawTools[name] = t
	r.tools[name] = r.wrap(t)
	r.opts.logger.DebugContext(context.Background(), "tool registered", "tool", name)
	return nil
}

// MustRegister is Register for startup code: it panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) wrap(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}

// Lookup returns the tool with the given name (after middlewares are applied).
// Unknown names fail with ErrToolNotFound.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns registered tool names sorted for deterministic order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DescribeAll returns a summary of every tool, sorted by name, for the planner's catalog.
func (r *Registry) DescribeAll() []ToolSummary {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSummary, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		out = append(out, ToolSummary{Name: name, Description: t.Description(), Parameters: t.Parameters()})
	}
	return out
}

// ToolSpecs renders the catalog in the completion service's terms.
func (r *Registry) ToolSpecs() []llm.ToolSpec {
	all := r.DescribeAll()
	specs := make([]llm.ToolSpec, len(all))
	for i, s := range all {
		specs[i] = llm.ToolSpec{Name: s.Name, Description: s.Description, Parameters: s.Parameters}
	}
	return specs
}

// Invoke looks up call.ToolName, validates the arguments against its contract and runs it.
// The returned ToolResult carries either the JSON result or a classified error:
// ErrToolNotFound, ClientError (ErrValidation), ToolError (ErrToolExecution, possibly
// wrapping ErrTimeout) or SandboxError. Invoke never panics when panic recovery is on.
// When ctx ends first, Invoke returns immediately with the handler's context canceled.
// The handler keeps its concurrency slot and counts as in flight for Shutdown until it returns.
func (r *Registry) Invoke(ctx context.Context, call ToolCall) (result ToolResult) {
	result = ToolResult{CallID: call.ID, ToolName: call.ToolName}
	start := time.Now()

	r.mu.RLock()
	select {
	case <-r.done:
		r.mu.RUnlock()
		result.Error = ErrShutdown
		return result
	default:
	}
	t, ok := r.tools[call.ToolName]
	if !ok {
		r.mu.RUnlock()
		result.Error = fmt.Errorf("%w: %s", ErrToolNotFound, call.ToolName)
		return result
	}
	r.running.Add(1)
	r.mu.RUnlock()
	handedOff := false
	defer func() {
		if !handedOff {
			r.running.Done()
		}
	}()

	timeout := r.opts.timeout
	if tm, ok := t.(ToolMetadata); ok && tm.Timeout() > 0 {
		timeout = tm.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// After-invoke hook sees the final result, including semaphore and timeout failures.
	defer func() {
		result.Duration = time.Since(start)
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, call, result)
		}
	}()

	if err := r.acquireSemaphore(ctx); err != nil {
		result.Error = r.contextError(call.ToolName, err)
		return result
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}

	args := []byte(call.Args)
	if len(args) == 0 {
		args = []byte("{}")
	}

	type outcome struct {
		data []byte
		err  error
	}
	ch := make(chan outcome, 1)
	handedOff = true
	go func() {
		var out outcome
		defer func() {
			if r.opts.recoverPanics {
				if p := recover(); p != nil {
					out = outcome{err: &ToolError{Tool: call.ToolName, Err: &panicError{p: p}}}
				}
			}
			r.releaseSemaphore()
			r.running.Done()
			ch <- out
		}()
		out.data, out.err = t.Execute(ctx, args)
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(out.err, ctxErr) {
				result.Error = r.contextError(call.ToolName, ctxErr)
			} else {
				result.Error = wrapHandlerError(call.ToolName, out.err)
			}
			return result
		}
		result.Result = out.data
	case <-ctx.Done():
		result.Error = r.contextError(call.ToolName, ctx.Err())
	}
	return result
}

// contextError maps a context failure to the invoker's vocabulary: a deadline is the
// tool's timeout, a cancellation stays context.Canceled.
func (r *Registry) contextError(tool string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Tool: tool, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return err
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// Shutdown closes the registry for new calls and waits for in-flight handlers, including
// those whose Invoke already returned on timeout, or for ctx to cancel. It may be called
// again to keep waiting.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
