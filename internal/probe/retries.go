package probe

import (
	"strings"
	"sync"
	"time"

	"github.com/vietddude/gqlclient/internal/core/domain"
)

// txPrefix marks transaction ids generated for probe queries.
const txPrefix = "probe-"

// RetryCounter counts scheduled retries of probe queries per transaction id.
// Its Observe method is a retry.Observer.
type RetryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRetryCounter creates an empty counter.
func NewRetryCounter() *RetryCounter {
	return &RetryCounter{counts: make(map[string]int)}
}

// Observe records one retry of op.
func (c *RetryCounter) Observe(op *domain.Operation, attempt int, delay time.Duration, cause *domain.ClassifiedError) {
	txID := op.TransactionID()
	if !strings.HasPrefix(txID, txPrefix) {
		return
	}
	c.mu.Lock()
	c.counts[txID]++
	c.mu.Unlock()
}

// Take returns the retries recorded for txID and forgets them.
func (c *RetryCounter) Take(txID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.counts[txID]
	delete(c.counts, txID)
	return n
}
