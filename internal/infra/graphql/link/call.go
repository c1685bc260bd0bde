package link

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vietddude/gqlclient/internal/core/domain"
)

// ErrCanceled is the outcome of a Call cancelled before it settled.
var ErrCanceled = fmt.Errorf("link: call canceled: %w", context.Canceled)

// StageFault reports a stage that failed while wiring its downstream call
// (a panic or a nil Call). It terminates the stream abnormally and is never retried.
type StageFault struct {
	Stage string
	Value any
}

// Error implements the error interface.
func (f *StageFault) Error() string {
	return fmt.Sprintf("link: stage %q faulted: %v", f.Stage, f.Value)
}

// IsStageFault reports whether err is a StageFault.
func IsStageFault(err error) bool {
	var f *StageFault
	return errors.As(err, &f)
}

// Call is a handle on one in-flight invocation of a Stage.
// It settles exactly once: with a Result (possibly nil for an empty
// stream), with an abnormal error, or with ErrCanceled.
type Call struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	result *domain.Result
	err    error
}

func newCall(cancel context.CancelFunc) *Call {
	if cancel == nil {
		cancel = func() {}
	}
	return &Call{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Go runs fn on its own goroutine under a cancellable child of ctx and
// returns immediately. A panic in fn settles the Call with a StageFault.
// Once ctx is done the Call settles with ErrCanceled and whatever fn
// returns afterwards is dropped.
func Go(
	ctx context.Context,
	stage string,
	fn func(ctx context.Context) (*domain.Result, error),
) *Call {
	ctx, cancel := context.WithCancel(ctx)
	c := newCall(cancel)

	stop := context.AfterFunc(ctx, func() {
		c.settle(nil, ErrCanceled)
	})

	go func() {
		defer cancel()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				c.settle(nil, &StageFault{Stage: stage, Value: r})
			}
		}()

		res, err := fn(ctx)
		if ctx.Err() != nil {
			c.settle(nil, ErrCanceled)
			return
		}
		c.settle(res, err)
	}()

	return c
}

// Resolved returns a Call already settled with res.
func Resolved(res *domain.Result) *Call {
	c := newCall(nil)
	c.settle(res, nil)
	return c
}

// Failed returns a Call already settled with err.
func Failed(err error) *Call {
	c := newCall(nil)
	c.settle(nil, err)
	return c
}

func (c *Call) settle(res *domain.Result, err error) bool {
	settled := false
	c.once.Do(func() {
		c.result = res
		c.err = err
		settled = true
		close(c.done)
	})
	return settled
}

// Done is closed once the Call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Outcome blocks until the Call settles and returns its outcome.
func (c *Call) Outcome() (*domain.Result, error) {
	<-c.done
	return c.result, c.err
}

// Wait blocks until the Call settles or ctx is done. In the latter case the
// Call is cancelled and ctx's error is returned.
func (c *Call) Wait(ctx context.Context) (*domain.Result, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		c.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel stops the invocation. It is idempotent and a no-op once settled.
func (c *Call) Cancel() {
	c.settle(nil, ErrCanceled)
	c.cancel()
}

// Canceled reports whether the Call settled through cancellation.
func (c *Call) Canceled() bool {
	select {
	case <-c.done:
		return errors.Is(c.err, ErrCanceled)
	default:
		return false
	}
}
