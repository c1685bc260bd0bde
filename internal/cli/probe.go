package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/gqlclient/internal/infra/graphql"
	"github.com/vietddude/gqlclient/internal/infra/graphql/retry"
	"github.com/vietddude/gqlclient/internal/probe"
)

var probeOnce bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Periodically probe the GraphQL service and serve health endpoints",
	Run:   runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeOnce, "once", false, "run a single probe, print the report and exit")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	counter := probe.NewRetryCounter()
	client, tr := newClient(cfg, retry.WithObserver(counter.Observe))

	monitor := probe.NewMonitor(client,
		graphql.Request{Query: cfg.Probe.Query, OperationName: cfg.Probe.OperationName},
		cfg.Probe.Interval,
		probe.WithRetryCounter(counter),
		probe.WithHealthSource(tr.Stats),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if probeOnce {
		report := monitor.Probe(ctx)
		slog.Info("Probe finished",
			"status", report.Status,
			"outcome", report.Outcome,
			"retries", report.Retries,
			"latency", report.Latency)
		if report.Status == probe.StatusCritical {
			os.Exit(1)
		}
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	server := probe.NewServer(monitor, cfg.Probe.Port)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server failed", "error", err)
			cancel()
		}
	}()
	go func() {
		_ = monitor.Run(ctx)
	}()

	slog.Info("Probe started",
		"endpoint", cfg.Endpoint.URL,
		"port", cfg.Probe.Port,
		"interval", cfg.Probe.Interval)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Probe stopped gracefully")
}
