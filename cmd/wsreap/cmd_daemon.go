package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/wsreap/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run lifecycle cycles on an interval",
	Long: `Run wsreap as a long-lived process.

A cycle runs at start and then every daemon.interval, each bounded by
daemon.cycle_timeout. A failed cycle is logged and retried on the next tick.

Endpoints on daemon.metrics_addr:
- /metrics    Prometheus scrape
- /health     JSON status with the last cycle summary
- /-/ready    200 while the loop runs`,
	Example: `  wsreap daemon                        # Daily cycles with defaults
  CYCLE_INTERVAL=1h wsreap daemon      # Hourly cycles
  wsreap daemon --dry-run              # Observe without acting`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().Bool("dry-run", false, "Decide and report without terminating or e-mailing")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	d, err := daemon.NewDaemon(a.orchestrator(), daemon.Config{
		Interval:     a.cfg.Daemon.Interval,
		CycleTimeout: a.cfg.Daemon.CycleTimeout,
		Addr:         a.cfg.Daemon.MetricsAddr,
		Gatherer:     a.otel.Registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}
