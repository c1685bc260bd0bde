// Package probe periodically runs a probe query through the client chain
// and reports the health of the GraphQL service.
package probe

import (
	"time"

	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
)

// SystemStatus represents the health state of the service.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// OutcomeSuccess is the outcome of a probe that returned data.
const OutcomeSuccess = "success"

// Report contains the result of the most recent probe.
type Report struct {
	Status              SystemStatus            `json:"status"`
	Outcome             string                  `json:"outcome"`
	Error               string                  `json:"error,omitempty"`
	Retries             int                     `json:"retries"`
	Latency             time.Duration           `json:"latency"`
	CheckedAt           time.Time               `json:"checked_at"`
	ConsecutiveFailures int                     `json:"consecutive_failures"`
	Transport           *transport.HealthStatus `json:"transport,omitempty"`
}
