package transport

import (
	"sync"
	"time"
)

// HealthStatus represents the health state of the endpoint as seen by the transport.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Requests      int           `json:"requests"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// Stats tracks request outcomes and latency for one endpoint.
type Stats struct {
	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewStats creates Stats for an endpoint assumed healthy.
func NewStats() *Stats {
	return &Stats{
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// Health returns a snapshot of the current health status.
func (s *Stats) Health() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// RecordSuccess records a request that produced a GraphQL response.
func (s *Stats) RecordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.successCount++
	s.requestCount++
	s.totalLatency += latency
	s.health.LastSuccessAt = time.Now()
	s.health.Available = true

	s.refresh()
	if s.successCount > 0 {
		s.health.Latency = s.totalLatency / time.Duration(s.successCount)
	}
}

// RecordFailure records a request that ended in a fault.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCount++
	s.requestCount++
	s.health.LastFailureAt = time.Now()

	s.refresh()
	if s.health.ErrorRate > 0.5 {
		s.health.Available = false
	}
}

func (s *Stats) refresh() {
	s.health.Requests = s.requestCount
	if s.requestCount > 0 {
		s.health.ErrorRate = float64(s.failureCount) / float64(s.requestCount)
	}
}
