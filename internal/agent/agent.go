// Package agent is the boundary to the browsing agent that answers a search directive.
package agent

import (
	"context"
	"time"
)

// Agent runs a natural-language directive and returns its final text answer.
type Agent interface {
	Run(ctx context.Context, directive string) (*Result, error)
}

// Stats describes an agent run. Errors may contain nil entries for steps that succeeded.
type Stats struct {
	Steps      int
	Duration   time.Duration
	Done       bool
	Successful bool
	Errors     []error
}

// Result is what an agent hands back after a run.
type Result struct {
	FinalText string
	Stats     Stats
}

// Func adapts a plain function to the Agent interface.
type Func func(ctx context.Context, directive string) (*Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, directive string) (*Result, error) {
	return f(ctx, directive)
}
