// Package link defines the stage contract shared by every step of the
// request pipeline.
//
// A Stage receives an Operation and returns a Call immediately; the outcome
// is delivered later on the Call. Middlewares wrap a downstream Stage and
// expose the same contract, so chains compose recursively:
//
//	chain := link.Chain(transport, retry.Middleware(cfg), classify.Middleware())
//	call := chain.Invoke(ctx, op)
//	res, err := call.Wait(ctx)
package link

import (
	"context"

	"github.com/vietddude/gqlclient/internal/core/domain"
)

// Stage is one step of the pipeline.
type Stage interface {
	// Invoke starts an invocation for op and returns without blocking.
	Invoke(ctx context.Context, op *domain.Operation) *Call
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, op *domain.Operation) *Call

// Invoke calls f(ctx, op).
func (f StageFunc) Invoke(ctx context.Context, op *domain.Operation) *Call {
	return f(ctx, op)
}

// Middleware wraps a downstream Stage.
type Middleware func(next Stage) Stage

// Chain wraps terminal with mws. The first middleware is the outermost.
func Chain(terminal Stage, mws ...Middleware) Stage {
	s := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		s = mws[i](s)
	}
	return s
}

// Await invokes next and waits for its outcome. Cancelling ctx cancels the
// downstream Call before returning. A nil Call from next is a StageFault.
func Await(ctx context.Context, stage string, next Stage, op *domain.Operation) (*domain.Result, error) {
	call := next.Invoke(ctx, op)
	if call == nil {
		return nil, &StageFault{Stage: stage, Value: "downstream returned no call"}
	}
	return call.Wait(ctx)
}
