package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/wsreap/orchestrator"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one lifecycle cycle and exit",
	Long: `Run a single cycle: list every workspace, classify it against the
warn/cutoff/grace thresholds, and warn or terminate as decided.

With --dry-run nothing is terminated and no e-mail is sent; the summary
reports what would have happened.`,
	Example: `  wsreap run                       # Real cycle with defaults
  wsreap run --dry-run -o yaml     # Preview decisions as YAML
  wsreap run --workers 4           # Evaluate four workspaces at a time`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("dry-run", false, "Decide and report without terminating or e-mailing")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "Summary format (text, json, yaml)")
}

func runCycle(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancelCycle := context.WithTimeout(ctx, a.cfg.Daemon.CycleTimeout)
	defer cancelCycle()

	summary, cycleErr := a.orchestrator().RunCycle(ctx)
	if summary != nil {
		if err := printSummary(cmd.OutOrStdout(), summary, runOutput); err != nil {
			return err
		}
	}
	return cycleErr
}

// printSummary writes s in the requested format.
func printSummary(w io.Writer, s *orchestrator.Summary, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return printSummaryText(w, s)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printSummaryText(w io.Writer, s *orchestrator.Summary) error {
	mode := "live"
	if s.DryRun {
		mode = "dry run"
	}

	_, err := fmt.Fprintf(w, `Cycle finished (%s) in %s
  Scanned:       %d
  No action:     %d
  Warned:        %d
  Terminated:    %d
  Skipped:       %d
  Failed:        %d
  Notify errors: %d
`,
		mode, s.Duration.Round(time.Millisecond),
		s.Scanned, s.NoAction, s.Warned, s.Terminated,
		s.Skipped, s.Failed, s.NotificationFailures)
	if err != nil {
		return err
	}

	for _, e := range s.Errors {
		if _, err := fmt.Fprintf(w, "  ! %s\n", e); err != nil {
			return err
		}
	}
	return nil
}
