package probe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vietddude/gqlclient/internal/core/domain"
	"github.com/vietddude/gqlclient/internal/infra/graphql"
	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
	"github.com/vietddude/gqlclient/internal/metrics"
)

// Querier runs a query document.
type Querier interface {
	Query(ctx context.Context, req graphql.Request, txID string) (json.RawMessage, error)
}

// HealthSource exposes transport-level statistics.
type HealthSource interface {
	Health() transport.HealthStatus
}

// Monitor runs the probe query and keeps the latest Report.
type Monitor struct {
	querier  Querier
	request  graphql.Request
	interval time.Duration
	retries  *RetryCounter
	stats    HealthSource
	clock    clockwork.Clock
	logger   *slog.Logger

	// probing serializes probe queries; mu only guards report.
	probing sync.Mutex
	mu      sync.RWMutex
	report  Report
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRetryCounter sets the counter fed by the retry scheduler.
func WithRetryCounter(c *RetryCounter) Option {
	return func(m *Monitor) {
		m.retries = c
	}
}

// WithHealthSource attaches transport statistics to reports.
func WithHealthSource(s HealthSource) Option {
	return func(m *Monitor) {
		m.stats = s
	}
}

// WithClock sets the clock driving probe scheduling.
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// NewMonitor creates a monitor that runs req every interval.
func NewMonitor(querier Querier, req graphql.Request, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		querier:  querier,
		request:  req,
		interval: interval,
		retries:  NewRetryCounter(),
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			m.Probe(ctx)
		}
	}
}

// CheckHealth returns the latest report, probing first when it is older
// than the probe interval. While another probe is in flight the previous
// report is returned without waiting, unless there is none yet.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	last := m.Last()
	if !last.CheckedAt.IsZero() && m.clock.Since(last.CheckedAt) < m.interval {
		return last
	}

	if !m.probing.TryLock() {
		if !last.CheckedAt.IsZero() {
			return last
		}
		m.probing.Lock()
	}
	defer m.probing.Unlock()

	// A probe may have finished while this call waited.
	if cur := m.Last(); cur.CheckedAt.After(last.CheckedAt) {
		return cur
	}
	return m.probe(ctx)
}

// Last returns the latest report without probing.
func (m *Monitor) Last() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

// Probe runs the probe query once and returns the new report.
func (m *Monitor) Probe(ctx context.Context) Report {
	m.probing.Lock()
	defer m.probing.Unlock()
	return m.probe(ctx)
}

// probe must be called with m.probing held. The query runs without m.mu.
func (m *Monitor) probe(ctx context.Context) Report {
	txID := txPrefix + uuid.NewString()

	start := m.clock.Now()
	_, err := m.querier.Query(ctx, m.request, txID)
	latency := m.clock.Since(start)
	retries := m.retries.Take(txID)

	if ctx.Err() != nil {
		// Interrupted probes are not recorded.
		return m.Last()
	}

	status, outcome := evaluate(err, retries)

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.report
	report := Report{
		Status:              status,
		Outcome:             outcome,
		Retries:             retries,
		Latency:             latency,
		CheckedAt:           m.clock.Now(),
		ConsecutiveFailures: prev.ConsecutiveFailures,
	}
	if err != nil {
		report.Error = err.Error()
		report.ConsecutiveFailures++
		metrics.ProbeUp.Set(0)
	} else {
		report.ConsecutiveFailures = 0
		metrics.ProbeUp.Set(1)
	}

	if status != prev.Status {
		m.logger.Info("Probe status changed",
			"from", prev.Status,
			"to", status,
			"outcome", outcome,
			"retries", retries)
	}
	if err != nil {
		m.logger.Warn("Probe failed", "outcome", outcome, "error", err, "transaction_id", txID)
	}

	m.report = report
	return m.snapshot()
}

func (m *Monitor) snapshot() Report {
	r := m.report
	if m.stats != nil {
		h := m.stats.Health()
		r.Transport = &h
	}
	return r
}

// evaluate maps a probe outcome to a status. A success that needed retries
// and an unclassified service error are degraded; every classified failure
// that reaches the caller is critical.
func evaluate(err error, retries int) (SystemStatus, string) {
	if err == nil {
		if retries > 0 {
			return StatusDegraded, OutcomeSuccess
		}
		return StatusHealthy, OutcomeSuccess
	}

	var ce *domain.ClassifiedError
	if errors.As(err, &ce) {
		return StatusCritical, ce.Kind.String()
	}
	if errors.Is(err, graphql.ErrNoResult) {
		return StatusDegraded, "empty"
	}
	return StatusDegraded, "unclassified"
}
