package agentcore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientError(t *testing.T) {
	tests := []struct {
		name   string
		err    *ClientError
		expect string
	}{
		{"with reason", &ClientError{Reason: "bad enum"}, "invalid tool input: bad enum"},
		{"empty reason", &ClientError{Reason: ""}, "invalid tool input: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.err.Error())
		})
	}
}

func TestToolError(t *testing.T) {
	inner := errors.New("db connection refused")
	err := &ToolError{Tool: "query_database", Err: inner}
	assert.Equal(t, `tool "query_database" failed: db connection refused`, err.Error())
	assert.Same(t, inner, err.Unwrap())
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, inner)
}

func TestSandboxError(t *testing.T) {
	err := &SandboxError{Message: "missing entry point"}
	assert.Equal(t, "sandbox: missing entry point", err.Error())
	assert.ErrorIs(t, err, ErrSandboxExecution)
	assert.NotErrorIs(t, err, ErrToolExecution)
}

func TestErrorsIs_As(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		is       bool
		asClient bool
		asTool   bool
	}{
		{"ClientError direct", &ClientError{Reason: "x", Err: ErrValidation}, ErrValidation, true, true, false},
		{"ToolError direct", &ToolError{Err: ErrTimeout}, ErrTimeout, true, false, true},
		{"wrapped ClientError", wrapErr{err: &ClientError{Reason: "y"}}, nil, false, true, false},
		{"wrapped ToolError", wrapErr{err: &ToolError{Err: ErrTimeout}}, ErrToolExecution, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.target != nil {
				assert.Equal(t, tt.is, errors.Is(tt.err, tt.target), "errors.Is")
			}
			assert.Equal(t, tt.asClient, IsClientError(tt.err), "IsClientError")
			var te *ToolError
			assert.Equal(t, tt.asTool, errors.As(tt.err, &te))
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("%w: x", ErrToolNotFound), KindToolNotFound},
		{"duplicate", fmt.Errorf("%w: x", ErrDuplicateTool), KindDuplicateTool},
		{"client", &ClientError{Reason: "r"}, KindValidationFailed},
		{"validation sentinel", ErrValidation, KindValidationFailed},
		{"tool", &ToolError{Tool: "t", Err: errors.New("x")}, KindToolExecutionError},
		{"timeout", &ToolError{Tool: "t", Err: ErrTimeout}, KindToolExecutionError},
		{"bare timeout", ErrTimeout, KindToolExecutionError},
		{"sandbox", &SandboxError{Message: "m"}, KindSandboxExecutionError},
		{"sandbox inside tool", &ToolError{Tool: "t", Err: &SandboxError{Message: "m"}}, KindSandboxExecutionError},
		{"max steps", ErrMaxStepsExceeded, KindMaxStepsExceeded},
		{"upstream", fmt.Errorf("%w: %w", ErrUpstreamService, errors.New("503")), KindUpstreamServiceError},
		{"canceled sentinel", ErrCanceled, KindCanceled},
		{"context canceled", context.Canceled, KindCanceled},
		{"other", errors.New("mystery"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrapHandlerError(t *testing.T) {
	require.NoError(t, wrapHandlerError("t", nil))
	ce := &ClientError{Reason: "x"}
	assert.Same(t, ce, wrapHandlerError("t", ce))
	se := &SandboxError{Message: "m"}
	assert.Equal(t, error(se), wrapHandlerError("t", se))
	te := &ToolError{Tool: "inner", Err: errors.New("x")}
	assert.Equal(t, error(te), wrapHandlerError("outer", te), "no double wrapping")
	var got *ToolError
	require.ErrorAs(t, wrapHandlerError("t", errors.New("boom")), &got)
	assert.Equal(t, "t", got.Tool)
}

func TestIsClientError(t *testing.T) {
	require.True(t, IsClientError(&ClientError{Reason: "x"}))
	require.False(t, IsClientError(&ToolError{Err: errors.New("x")}))
	require.False(t, IsClientError(ErrToolNotFound))
	require.True(t, IsClientError(wrapErr{err: &ClientError{Reason: "y"}}))
}

type wrapErr struct {
	err error
}

func (e wrapErr) Error() string {
	if e.err == nil {
		return ""
	}
	return "wrap: " + e.err.Error()
}
func (e wrapErr) Unwrap() error { return e.err }
