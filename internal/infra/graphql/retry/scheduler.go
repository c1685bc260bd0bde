// Package retry re-invokes the downstream pipeline after transient failures.
//
// The Scheduler reads the ClassifiedError of each downstream Result:
//
//   - no error, or a non-transient kind: the Result is forwarded unchanged
//   - ServiceUnavailableWithoutRetry: finalized as ServiceUnavailable
//   - ServiceUnavailableWithRetry / NetworkError: retried after an
//     exponential backoff while the budget lasts, then finalized
//
// Retry state is created per invocation and never shared between operations.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jonboulle/clockwork"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql/link"
	"github.com/vietddude/gqlclient/internal/metrics"
)

// MessageServiceUnavailable is the message of every finalized error.
const MessageServiceUnavailable = "GraphQL service unavailable"

const stageName = "retry"

// Observer is notified whenever a retry is scheduled.
type Observer func(op *domain.Operation, attempt int, delay time.Duration, cause *domain.ClassifiedError)

// Scheduler is the retry stage.
type Scheduler struct {
	next     link.Stage
	cfg      Config
	clock    clockwork.Clock
	logger   *slog.Logger
	observer Observer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for backoff timers.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithObserver registers a callback invoked for every scheduled retry.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// New wraps next with a Scheduler. An invalid cfg is replaced by
// DefaultConfig.
func New(next link.Stage, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		next:   next,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("Invalid retry config, using defaults", "error", err)
		s.cfg = DefaultConfig()
	}
	return s
}

// Config returns the configuration in effect.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Middleware returns the scheduler as a link.Middleware.
func Middleware(cfg Config, opts ...Option) link.Middleware {
	return func(next link.Stage) link.Stage {
		return New(next, cfg, opts...)
	}
}

type action int

const (
	actionForward action = iota
	actionFinalize
	actionRetry
)

// state is the per-invocation retry state.
type state struct {
	attempts int
	schedule *backoff.ExponentialBackOff
}

// Invoke implements link.Stage.
func (s *Scheduler) Invoke(ctx context.Context, op *domain.Operation) *link.Call {
	return link.Go(ctx, stageName, func(ctx context.Context) (*domain.Result, error) {
		st := &state{schedule: s.cfg.newBackOff(s.clock)}

		for {
			res, err := link.Await(ctx, stageName, s.next, op)
			if err != nil {
				return nil, err
			}

			act, cause := s.decide(st, res)
			switch act {
			case actionForward:
				return res, nil
			case actionFinalize:
				return finalize(res, cause), nil
			}

			delay := st.schedule.NextBackOff()
			if delay == backoff.Stop {
				return finalize(res, cause), nil
			}
			st.attempts++

			s.logger.Warn("Transient GraphQL failure, scheduling retry",
				"operation", op.Name,
				"transaction_id", op.TransactionID(),
				"kind", cause.Kind.String(),
				"attempt", st.attempts,
				"max_attempts", s.cfg.MaxAttempts,
				"delay", delay)
			metrics.RetriesTotal.WithLabelValues(metrics.OperationLabel(op.Name), cause.Kind.String()).Inc()
			if s.observer != nil {
				s.observer(op, st.attempts, delay, cause)
			}

			if err := s.wait(ctx, delay); err != nil {
				return nil, err
			}
		}
	})
}

func (s *Scheduler) decide(st *state, res *domain.Result) (action, *domain.ClassifiedError) {
	ce, ok := domain.AsClassified(res.FirstError())
	if !ok {
		return actionForward, nil
	}

	switch ce.Kind {
	case domain.KindServiceUnavailableWithoutRetry:
		return actionFinalize, ce
	case domain.KindServiceUnavailableWithRetry, domain.KindNetworkError:
		if st.attempts < s.cfg.MaxAttempts {
			return actionRetry, ce
		}
		s.logger.Debug("Retry budget exhausted", "attempts", st.attempts, "kind", ce.Kind.String())
		return actionFinalize, ce
	default:
		return actionForward, nil
	}
}

// wait blocks for delay. The timer is released if ctx is done first, and a
// timer that fired for a cancelled invocation is ignored.
func (s *Scheduler) wait(ctx context.Context, delay time.Duration) error {
	timer := s.clock.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.Chan():
	}
	return ctx.Err()
}

func finalize(res *domain.Result, cause *domain.ClassifiedError) *domain.Result {
	return &domain.Result{
		Data:   res.Data,
		Errors: []error{domain.NewClassifiedError(domain.KindServiceUnavailable, MessageServiceUnavailable, cause)},
	}
}
