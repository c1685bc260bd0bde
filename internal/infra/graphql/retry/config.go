package retry

import (
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jonboulle/clockwork"
)

// Config defines retry behavior for transient failures.
type Config struct {
	// MaxAttempts is the number of retries after the initial attempt.
	// With MaxAttempts 2 the downstream stage runs at most 3 times.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Exponent multiplies the delay after every retry:
	// delay(n) = InitialDelay * Exponent^(n-1).
	Exponent float64 `yaml:"exponent"`

	// MaxDelay caps a single delay. Zero means no cap.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// DefaultConfig provides the standard budget: 2 retries after 200ms and 400ms.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		Exponent:     2,
		MaxDelay:     30 * time.Second,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.MaxAttempts < 0 {
		return errors.New("retry: MaxAttempts cannot be negative")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.Exponent < 1 {
		return errors.New("retry: Exponent must be >= 1")
	}
	if c.MaxDelay < 0 {
		return errors.New("retry: MaxDelay cannot be negative")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return nil
}

// Delays returns the full backoff schedule, one entry per retry.
func (c Config) Delays() []time.Duration {
	b := c.newBackOff(clockwork.NewRealClock())
	delays := make([]time.Duration, 0, c.MaxAttempts)
	for range c.MaxAttempts {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// newBackOff builds a deterministic exponential schedule. It never stops on
// elapsed time; the attempt budget is enforced by the scheduler.
func (c Config) newBackOff(clock clockwork.Clock) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.Multiplier = c.Exponent
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = c.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.Clock = clock
	b.Reset()
	return b
}
