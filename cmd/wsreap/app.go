package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	awsadapter "github.com/yairfalse/wsreap/internal/aws"
	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/internal/config"
	"github.com/yairfalse/wsreap/executor"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/orchestrator"
	"github.com/yairfalse/wsreap/tagger"
	"github.com/yairfalse/wsreap/telemetry"
)

// app holds what every command needs, wired once from config.
type app struct {
	cfg     *config.Config
	otel    *telemetry.Providers
	exec    *backoff.Executor
	clients *awsadapter.Clients
}

// newApp loads config, sets up logging and telemetry, and builds the AWS
// adapters behind one shared backoff executor.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := telemetry.ConfigureGlobal(cfg.OTEL.ServiceName, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	providers, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTEL.Endpoint,
		Insecure:       cfg.OTEL.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	exec := backoff.New(cfg.RetryPolicy(),
		backoff.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		backoff.WithRetryHook(retryHook(providers.Metrics)),
	)

	clients, err := awsadapter.New(ctx, awsadapter.Config{
		Region:      cfg.Region,
		SourceEmail: cfg.SourceEmail,
	})
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}

	log.Debug().
		Str("region", cfg.Region).
		Int("workers", cfg.Workers).
		Bool("dry_run", cfg.DryRun).
		Interface("thresholds", cfg.Thresholds()).
		Msg("configuration loaded")

	return &app{cfg: cfg, otel: providers, exec: exec, clients: clients}, nil
}

// retryHook counts every throttled retry.
func retryHook(m *telemetry.Metrics) backoff.RetryHook {
	return func(ctx context.Context, operation string, _ int, _ error, _ time.Duration) {
		m.RecordRetry(ctx, operation)
	}
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	th := a.cfg.Thresholds()
	dispatcher := executor.NewDispatcher(
		a.clients.Provider,
		a.clients.Notifier,
		a.exec,
		th,
		executor.Options{
			Domain:     a.cfg.DomainName,
			AdminEmail: a.cfg.AdminEmail,
			DryRun:     a.cfg.DryRun,
		},
	)

	return orchestrator.NewOrchestrator(
		inventory.NewLister(a.clients.Provider, a.exec),
		dispatcher,
		orchestrator.Config{
			Thresholds: th,
			Workers:    a.cfg.Workers,
			Region:     a.cfg.Region,
		},
	).WithMetrics(a.otel.Metrics)
}

func (a *app) tagHandler() *tagger.Handler {
	return tagger.NewHandler(a.clients.Provider)
}

func (a *app) backfiller() *tagger.Backfiller {
	return tagger.NewBackfiller(a.clients.CreationEvents, a.clients.Provider, a.exec, a.cfg.DryRun)
}

// close flushes telemetry with a bounded deadline.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}
