package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/gqlclient/internal/core/config"
	"github.com/vietddude/gqlclient/internal/infra/graphql"
	"github.com/vietddude/gqlclient/internal/infra/graphql/retry"
	"github.com/vietddude/gqlclient/internal/infra/graphql/transport"
)

var (
	cfgPath  string
	endpoint string
	isDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "gqlclient",
	Short: "Resilient GraphQL client",
	Long: `gqlclient sends GraphQL queries and mutations through a retrying,
error-classifying pipeline, and can probe a GraphQL service for health.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint URL, overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads the config file and applies flag overrides. A missing
// config file is fine when --endpoint is given.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	override := func(c *config.AppConfig) {
		if endpoint != "" {
			c.Endpoint.URL = endpoint
		}
		if isDebug {
			c.Logging.Level = "debug"
		}
	}

	cfg, err := config.Load(cfgPath, override)
	if errors.Is(err, fs.ErrNotExist) && endpoint != "" {
		cfg, err = config.Parse(nil, override)
	}
	if err != nil {
		stylelog.InitDefault()
		return nil, err
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	return cfg, nil
}

// newClient builds the transport and the client chain on top of it.
func newClient(cfg *config.AppConfig, opts ...retry.Option) (*graphql.Client, *transport.HTTPTransport) {
	trOpts := make([]transport.Option, 0, len(cfg.Endpoint.Headers))
	for k, v := range cfg.Endpoint.Headers {
		trOpts = append(trOpts, transport.WithHeader(k, v))
	}
	tr := transport.NewHTTPTransport(cfg.Endpoint.URL, cfg.Endpoint.Timeout, trOpts...)

	chain := graphql.NewChain(tr, cfg.Retry, opts...)
	return graphql.NewClient(chain), tr
}
