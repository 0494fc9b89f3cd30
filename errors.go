package agentcore

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for agentcore. Use errors.Is to check.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrDuplicateTool    = errors.New("duplicate tool")
	ErrInvalidTool      = errors.New("invalid tool")
	ErrValidation       = errors.New("validation failed")
	ErrToolExecution    = errors.New("tool execution failed")
	ErrSandboxExecution = errors.New("sandbox execution failed")
	ErrTimeout          = errors.New("tool execution timeout")
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
	ErrUpstreamService  = errors.New("upstream service error")
	ErrCanceled         = errors.New("run canceled")
)

// ErrorKind names a failure class of the taxonomy. It is what callers see in a
// structured failure and what the trace records next to a failed tool return.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindToolNotFound          ErrorKind = "ToolNotFound"
	KindDuplicateTool         ErrorKind = "DuplicateTool"
	KindValidationFailed      ErrorKind = "ValidationFailed"
	KindToolExecutionError    ErrorKind = "ToolExecutionError"
	KindSandboxExecutionError ErrorKind = "SandboxExecutionError"
	KindMaxStepsExceeded      ErrorKind = "MaxStepsExceeded"
	KindUpstreamServiceError  ErrorKind = "UpstreamServiceError"
	KindCanceled              ErrorKind = "Canceled"
	KindInternal              ErrorKind = "Internal"
)

// KindOf classifies err. Order matters: a sandbox failure is also a tool
// failure, and a timeout is reported as the tool's failure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDuplicateTool):
		return KindDuplicateTool
	case errors.Is(err, ErrToolNotFound):
		return KindToolNotFound
	case errors.Is(err, ErrValidation), IsClientError(err):
		return KindValidationFailed
	case errors.Is(err, ErrSandboxExecution):
		return KindSandboxExecutionError
	case errors.Is(err, ErrToolExecution), errors.Is(err, ErrTimeout):
		return KindToolExecutionError
	case errors.Is(err, ErrMaxStepsExceeded):
		return KindMaxStepsExceeded
	case errors.Is(err, ErrUpstreamService):
		return KindUpstreamServiceError
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// ClientError is an error that should be sent back to the LLM for self-correction
// (e.g. invalid JSON, schema validation failure, bad enum value).
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrValidation)).
func (e *ClientError) Unwrap() error { return e.Err }

// ToolError reports a fault raised by a tool handler (including panics and timeouts).
// It matches ErrToolExecution and unwraps to the handler's error.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is makes ToolError match ErrToolExecution.
func (e *ToolError) Is(target error) bool { return target == ErrToolExecution }

// SandboxError reports that generated code faulted or exposed no entry point.
type SandboxError struct {
	Message string
}

func (e *SandboxError) Error() string {
	return "sandbox: " + e.Message
}

// Is makes SandboxError match ErrSandboxExecution.
func (e *SandboxError) Is(target error) bool { return target == ErrSandboxExecution }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// wrapJSONParseError returns a ClientError for JSON unmarshal failures.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: ErrValidation}
}

// wrapHandlerError passes through ClientError and SandboxError; wraps other errors as ToolError.
func wrapHandlerError(tool string, err error) error {
	if err == nil {
		return nil
	}
	var te *ToolError
	if IsClientError(err) || errors.Is(err, ErrSandboxExecution) || errors.As(err, &te) {
		return err
	}
	return &ToolError{Tool: tool, Err: err}
}

// panicError wraps a recovered panic value; used by Registry and WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
