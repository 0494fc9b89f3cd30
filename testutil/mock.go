// Package testutil provides test helpers for agentcore: a configurable mock tool,
// a test registry and a scripted completion service.
package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/agentcore"
)

// MockTool is a configurable Tool implementation for tests. It records every
// argument payload it receives.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal map[string]any
	ExecuteFn func(ctx context.Context, args []byte) ([]byte, error)

	mu    sync.Mutex
	calls [][]byte
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or an empty object schema).
func (m *MockTool) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{"type": "object"}
}

// Execute records args and runs ExecuteFn if set, otherwise returns `{}`.
func (m *MockTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]byte(nil), args...))
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args)
	}
	return []byte(`{}`), nil
}

// Calls returns the argument payloads seen so far.
func (m *MockTool) Calls() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.calls...)
}

// Ensure MockTool implements Tool.
var _ agentcore.Tool = (*MockTool)(nil)
