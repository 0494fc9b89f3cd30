// Package sandbox runs untrusted, model-generated programs and extracts the
// return value of their main entry point. Runners never let a fault in the
// program escape to the caller: every outcome is an ExecutionResult.
package sandbox

import (
	"context"
	"strings"
)

// MissingEntryPoint is the error reported when a program defines no callable main.
const MissingEntryPoint = "missing entry point"

// EntryPoint is the zero-argument function every program must define.
const EntryPoint = "main"

// ExecutionResult is the outcome of one run: either Success with Value, or
// failure with Error. Never both.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(value string) ExecutionResult {
	return ExecutionResult{Success: true, Value: value}
}

// Failed builds a failed result.
func Failed(msg string) ExecutionResult {
	return ExecutionResult{Error: msg}
}

// Runner executes one program in a fresh scope.
type Runner interface {
	// Run strips code fences from source, executes it and calls its entry point.
	// Run must return (not panic) for any input and honor ctx cancellation.
	Run(ctx context.Context, source string) ExecutionResult
	// Language names the accepted source language, used in prompts.
	Language() string
}

// StripFences drops a leading and a trailing fence delimiter line (``` or ~~~,
// optionally with an info string) when present. Interior lines are untouched.
func StripFences(source string) string {
	lines := strings.Split(strings.TrimSpace(source), "\n")
	if len(lines) > 0 && isFence(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) > 0 && isFence(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func isFence(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")
}
