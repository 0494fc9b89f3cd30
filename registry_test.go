package agentcore

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func raw(s string) json.RawMessage { return []byte(s) }

type xArgs struct {
	X int `json:"x"`
}

type yOut struct {
	Y int `json:"y"`
}

func doubleTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewTool("double", "Double x", func(_ context.Context, a xArgs) (yOut, error) {
		return yOut{Y: a.X * 2}, nil
	})
	require.NoError(t, err)
	return tool
}

func TestRegistry_Register_Invoke(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second), WithRecoverPanics(true))
	require.NoError(t, reg.Register(doubleTool(t)))
	assert.Equal(t, 1, reg.Len())
	res := reg.Invoke(context.Background(), ToolCall{
		ID: "1", ToolName: "double", Args: raw(`{"x": 7}`),
	})
	require.NoError(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, "1", res.CallID)
	var out yOut
	require.NoError(t, json.Unmarshal(res.Result, &out))
	assert.Equal(t, 14, out.Y)
}

func TestRegistry_Lookup(t *testing.T) {
	tool := doubleTool(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	got, err := reg.Lookup("double")
	require.NoError(t, err)
	require.Same(t, tool, got)
	_, err = reg.Lookup("missing")
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.Equal(t, KindToolNotFound, KindOf(err))
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	first, err := NewTool("same", "First", func(_ context.Context, a xArgs) (yOut, error) {
		return yOut{Y: a.X}, nil
	})
	require.NoError(t, err)
	second, err := NewTool("same", "Second", func(_ context.Context, a xArgs) (yOut, error) {
		return yOut{Y: a.X * 10}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(first))
	before := reg.DescribeAll()

	err = reg.Register(second)
	require.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, KindDuplicateTool, KindOf(err))
	assert.Equal(t, before, reg.DescribeAll(), "failed registration leaves state unchanged")

	got, err := reg.Lookup("same")
	require.NoError(t, err)
	require.Same(t, first, got)
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "same", Args: raw(`{"x": 5}`)})
	require.NoError(t, res.Error)
	var out yOut
	require.NoError(t, json.Unmarshal(res.Result, &out))
	assert.Equal(t, 5, out.Y)
}

func TestRegistry_Register_Invalid(t *testing.T) {
	reg := NewRegistry()
	require.ErrorIs(t, reg.Register(nil), ErrInvalidTool)
	require.ErrorIs(t, reg.Register(&stubTool{}), ErrInvalidTool)
	assert.Zero(t, reg.Len())
}

func TestRegistry_MustRegister(t *testing.T) {
	reg := NewRegistry()
	tool := doubleTool(t)
	reg.MustRegister(tool)
	assert.Panics(t, func() { reg.MustRegister(tool) })
}

func TestRegistry_DescribeAll_Sorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		tool, err := NewTool(name, "desc "+name, func(_ context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, nil
		})
		require.NoError(t, err)
		require.NoError(t, reg.Register(tool))
	}
	all := reg.DescribeAll()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{all[0].Name, all[1].Name, all[2].Name})
	assert.Equal(t, "desc alpha", all[0].Description)
	assert.Equal(t, "object", all[0].Parameters["type"])

	specs := reg.ToolSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
}

func TestRegistry_Invoke_ToolNotFound(t *testing.T) {
	reg := NewRegistry()
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "missing", Args: raw("{}")})
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrToolNotFound)
	assert.Nil(t, res.Result)
}

func TestRegistry_Invoke_ValidationFailed(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(doubleTool(t)))
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x": "seven"}`)})
	require.Error(t, res.Error)
	assert.True(t, IsClientError(res.Error))
	assert.Equal(t, KindValidationFailed, KindOf(res.Error))
}

func TestRegistry_Invoke_EmptyArgs(t *testing.T) {
	tool, err := NewTool("ping", "Ping", func(_ context.Context, _ struct{}) (string, error) {
		return "pong", nil
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "ping"})
	require.NoError(t, res.Error)
	assert.Equal(t, "pong", res.Text())
}

func TestRegistry_Invoke_PanicRecovery(t *testing.T) {
	tool, err := NewTool("panic", "Panics", func(_ context.Context, _ xArgs) (yOut, error) {
		panic("oops")
	})
	require.NoError(t, err)
	reg := NewRegistry(WithRecoverPanics(true))
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "panic", Args: raw(`{"x": 1}`)})
	require.Error(t, res.Error)
	var te *ToolError
	require.ErrorAs(t, res.Error, &te)
	assert.Equal(t, "panic", te.Tool)
	assert.Contains(t, res.Error.Error(), "oops")
	assert.Equal(t, KindToolExecutionError, KindOf(res.Error))
}

func TestRegistry_Invoke_HandlerError(t *testing.T) {
	errSentinel := errors.New("db connection refused")
	tool, err := NewTool("fail", "Fails", func(_ context.Context, _ xArgs) (yOut, error) {
		return yOut{}, errSentinel
	})
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "e1", ToolName: "fail", Args: raw(`{"x": 1}`)})
	require.ErrorIs(t, res.Error, errSentinel)
	require.ErrorIs(t, res.Error, ErrToolExecution)
	assert.Equal(t, KindToolExecutionError, KindOf(res.Error))
}

func TestRegistry_Invoke_Timeout(t *testing.T) {
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ xArgs) (yOut, error) {
		select {
		case <-ctx.Done():
			return yOut{}, ctx.Err()
		case <-time.After(time.Second):
			return yOut{}, nil
		}
	}, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x": 1}`)})
	require.ErrorIs(t, res.Error, ErrTimeout)
	require.ErrorIs(t, res.Error, ErrToolExecution)
	assert.Equal(t, KindToolExecutionError, KindOf(res.Error))
}

func TestRegistry_Invoke_IgnoresContextHandler(t *testing.T) {
	release := make(chan struct{})
	tool, err := NewTool("stuck", "Stuck", func(_ context.Context, _ xArgs) (yOut, error) {
		<-release
		return yOut{}, nil
	}, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	reg := NewRegistry()
	require.NoError(t, reg.Register(tool))
	start := time.Now()
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "stuck", Args: raw(`{"x": 1}`)})
	close(release)
	require.ErrorIs(t, res.Error, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second, "Invoke returns at the deadline")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
}

func TestRegistry_AbandonedHandlerKeepsSlotUntilReturn(t *testing.T) {
	release := make(chan struct{})
	var running, peak int32
	tool, err := NewTool("stuck", "Stuck", func(_ context.Context, _ xArgs) (yOut, error) {
		n := atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		return yOut{}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(20*time.Millisecond))
	require.NoError(t, reg.Register(tool))

	for i := range 3 {
		res := reg.Invoke(context.Background(), ToolCall{ID: string(rune('a' + i)), ToolName: "stuck", Args: raw(`{"x": 1}`)})
		require.ErrorIs(t, res.Error, ErrTimeout)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak), "timed-out handler still holds its slot")

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	require.ErrorIs(t, reg.Shutdown(short), context.DeadlineExceeded, "handler is still in flight")
	assert.Equal(t, int32(1), atomic.LoadInt32(&running))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	assert.Equal(t, int32(0), atomic.LoadInt32(&running))
}

func TestRegistry_Invoke_CancelledContext(t *testing.T) {
	reg := NewRegistry(WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(doubleTool(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := reg.Invoke(ctx, ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x": 1}`)})
	if res.Error != nil {
		assert.True(t, errors.Is(res.Error, context.Canceled), "expected context.Canceled, got %v", res.Error)
		assert.Equal(t, KindCanceled, KindOf(res.Error))
	}
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(doubleTool(t)))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	require.NoError(t, reg.Shutdown(ctx), "idempotent")
	res := reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x":1}`)})
	assert.ErrorIs(t, res.Error, ErrShutdown)
}

func TestRegistry_Shutdown_InFlight(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	tool, err := NewTool("slow", "Slow", func(_ context.Context, _ xArgs) (yOut, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(done)
		return yOut{}, nil
	})
	require.NoError(t, err)
	reg := NewRegistry(WithDefaultTimeout(5 * time.Second))
	require.NoError(t, reg.Register(tool))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		reg.Invoke(context.Background(), ToolCall{ID: "1", ToolName: "slow", Args: raw(`{"x":1}`)})
	}()
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	select {
	case <-done:
	default:
		t.Fatal("in-flight execution should have completed before Shutdown returned")
	}
	<-finished
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	var running, peak int32
	tool, err := NewTool("slow", "Slow", func(ctx context.Context, _ xArgs) (yOut, error) {
		n := atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		select {
		case <-ctx.Done():
			return yOut{}, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return yOut{}, nil
		}
	})
	require.NoError(t, err)
	reg := NewRegistry(WithMaxConcurrency(1), WithDefaultTimeout(time.Second))
	require.NoError(t, reg.Register(tool))
	results := make(chan ToolResult, 3)
	for i := range 3 {
		go func() {
			results <- reg.Invoke(context.Background(), ToolCall{ID: string(rune('a' + i)), ToolName: "slow", Args: raw(`{"x": 1}`)})
		}()
	}
	for range 3 {
		require.NoError(t, (<-results).Error)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRegistry_ObservabilityHooks(t *testing.T) {
	tool, err := NewTool("add_one", "Add one", func(_ context.Context, a xArgs) (yOut, error) {
		return yOut{Y: a.X + 1}, nil
	})
	require.NoError(t, err)
	var beforeCalls, afterCalls int
	var lastCall ToolCall
	var lastResult ToolResult
	reg := NewRegistry(
		WithOnBeforeInvoke(func(_ context.Context, call ToolCall) {
			beforeCalls++
			lastCall = call
		}),
		WithOnAfterInvoke(func(_ context.Context, _ ToolCall, result ToolResult) {
			afterCalls++
			lastResult = result
		}),
	)
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "h1", ToolName: "add_one", Args: raw(`{"x": 10}`)})
	require.NoError(t, res.Error)
	assert.Equal(t, 1, beforeCalls)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "h1", lastCall.ID)
	assert.Equal(t, "add_one", lastCall.ToolName)
	assert.Equal(t, "h1", lastResult.CallID)
	assert.NotNil(t, lastResult.Result)
	assert.GreaterOrEqual(t, lastResult.Duration, time.Duration(0))
}

func TestRegistry_OnAfter_ErrorPath(t *testing.T) {
	errSentinel := errors.New("tool error")
	tool, err := NewTool("fail", "Fails", func(_ context.Context, _ xArgs) (yOut, error) {
		return yOut{}, errSentinel
	})
	require.NoError(t, err)
	var afterCalls int
	var lastResult ToolResult
	reg := NewRegistry(WithOnAfterInvoke(func(_ context.Context, _ ToolCall, result ToolResult) {
		afterCalls++
		lastResult = result
	}))
	require.NoError(t, reg.Register(tool))
	res := reg.Invoke(context.Background(), ToolCall{ID: "e1", ToolName: "fail", Args: raw(`{"x": 1}`)})
	require.ErrorIs(t, res.Error, errSentinel)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, "e1", lastResult.CallID)
	assert.Equal(t, "fail", lastResult.ToolName)
	assert.ErrorIs(t, lastResult.Error, errSentinel)
}

func TestToolResult_Text(t *testing.T) {
	tests := []struct {
		name string
		res  ToolResult
		want string
	}{
		{"json string", ToolResult{Result: []byte(`"hello \"world\""`)}, `hello "world"`},
		{"object", ToolResult{Result: []byte(`{"a":1}`)}, `{"a":1}`},
		{"error", ToolResult{Error: errors.New("boom")}, "boom"},
		{"empty", ToolResult{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Text())
		})
	}
}

// stubTool is a minimal Tool with a configurable name.
type stubTool struct {
	name string
	fn   func(ctx context.Context, args []byte) ([]byte, error)
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	if s.fn != nil {
		return s.fn(ctx, args)
	}
	return []byte(`{}`), nil
}
