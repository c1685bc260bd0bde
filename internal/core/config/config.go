package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vietddude/gqlclient/internal/infra/graphql/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Retry    retry.Config   `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
	Probe    ProbeConfig    `yaml:"probe"`
}

// EndpointConfig holds the GraphQL service settings.
type EndpointConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"` // sent with every request
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ProbeConfig holds settings for the periodic health probe.
type ProbeConfig struct {
	Port          int           `yaml:"port"`
	Interval      time.Duration `yaml:"interval"`
	Query         string        `yaml:"query"`
	OperationName string        `yaml:"operation_name"`
}

// Default returns a configuration with every optional field set.
func Default() AppConfig {
	return AppConfig{
		Endpoint: EndpointConfig{
			Timeout: 30 * time.Second,
		},
		Retry: retry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Probe: ProbeConfig{
			Port:     8080,
			Interval: 30 * time.Second,
			Query:    "query Probe { __typename }",
		},
	}
}

// Validate checks required fields and value ranges.
func (c *AppConfig) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	u, err := url.Parse(c.Endpoint.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint.url %q is not an absolute URL", c.Endpoint.URL)
	}
	if c.Endpoint.Timeout <= 0 {
		return errors.New("endpoint.timeout must be positive")
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Probe.Interval <= 0 {
		return errors.New("probe.interval must be positive")
	}
	return nil
}
