package agent

import (
	"context"
	"maps"
)

type initialContextKey struct{}

func withInitialContext(ctx context.Context, initial map[string]any) context.Context {
	if len(initial) == 0 {
		return ctx
	}
	return context.WithValue(ctx, initialContextKey{}, maps.Clone(initial))
}

// InitialContext returns a copy of the initial context map passed to Run, or nil.
// Tool handlers call it with the context they receive.
func InitialContext(ctx context.Context) map[string]any {
	m, _ := ctx.Value(initialContextKey{}).(map[string]any)
	return maps.Clone(m)
}
