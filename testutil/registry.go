package testutil

import (
	"testing"
	"time"

	"github.com/skosovsky/agentcore"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. Registration failures fail tb immediately.
func NewTestRegistry(tb testing.TB, tools ...agentcore.Tool) *agentcore.Registry {
	tb.Helper()
	reg := agentcore.NewRegistry(
		agentcore.WithDefaultTimeout(30*time.Second),
		agentcore.WithRecoverPanics(true),
	)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			tb.Fatalf("register %s: %v", t.Name(), err)
		}
	}
	return reg
}
