package agent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome pairs one goal with its run result.
type Outcome struct {
	Goal   string
	Result Result
	Err    error
}

// RunAll runs goals as independent concurrent runs, at most limit at a time
// (limit < 1 means unbounded). A failing run does not cancel the others.
// Outcomes are returned in goal order.
func (a *Agent) RunAll(ctx context.Context, goals []string, limit int) []Outcome {
	out := make([]Outcome, len(goals))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, goal := range goals {
		g.Go(func() error {
			res, err := a.Run(ctx, goal, nil)
			out[i] = Outcome{Goal: goal, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
