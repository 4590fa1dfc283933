// Package daemon runs lifecycle cycles on an interval and serves metrics and
// health endpoints until the process is signalled.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yairfalse/wsreap/orchestrator"
	"github.com/yairfalse/wsreap/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Cycler runs one lifecycle cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (*orchestrator.Summary, error)
}

// Config holds daemon configuration
type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	// Addr is the HTTP listen address. Empty disables the server.
	Addr string
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// Daemon runs cycles continuously.
type Daemon struct {
	cycler       Cycler
	interval     time.Duration
	cycleTimeout time.Duration
	addr         string
	gatherer     prometheus.Gatherer
	logger       *telemetry.Logger

	startTime  time.Time
	cycleCount atomic.Int64
	ready      atomic.Bool

	mu        sync.Mutex
	lastErr   error
	lastCycle *orchestrator.Summary
	listener  net.Listener
}

// NewDaemon creates a new daemon instance
func NewDaemon(cycler Cycler, config Config) (*Daemon, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive (got %s)", config.Interval)
	}
	if config.CycleTimeout <= 0 {
		return nil, fmt.Errorf("cycle timeout must be positive (got %s)", config.CycleTimeout)
	}
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Daemon{
		cycler:       cycler,
		interval:     config.Interval,
		cycleTimeout: config.CycleTimeout,
		addr:         config.Addr,
		gatherer:     gatherer,
		logger:       telemetry.NewLogger("daemon"),
		startTime:    time.Now(),
	}, nil
}

// Start runs the cycle loop and the HTTP server until ctx is cancelled or
// SIGINT/SIGTERM arrives. Both count as a clean stop.
func (d *Daemon) Start(ctx context.Context) error {
	var g run.Group

	{
		execute, interrupt := run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM)
		g.Add(execute, interrupt)
	}

	{
		loopCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			d.loop(loopCtx)
			return nil
		}, func(error) {
			cancel()
		})
	}

	if d.addr != "" {
		ln, err := net.Listen("tcp", d.addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", d.addr, err)
		}
		d.mu.Lock()
		d.listener = ln
		d.mu.Unlock()

		srv := &http.Server{Handler: d.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Add(func() error {
			d.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics and health")
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	d.ready.Store(true)
	d.logger.Info().
		Dur("interval", d.interval).
		Dur("cycle_timeout", d.cycleTimeout).
		Msg("daemon started")

	err := g.Run()
	d.ready.Store(false)

	var sigErr run.SignalError
	switch {
	case errors.As(err, &sigErr):
		d.logger.Info().Str("signal", sigErr.Signal.String()).Msg("daemon stopped")
		return nil
	case err == nil, errors.Is(err, context.Canceled):
		d.logger.Info().Msg("daemon stopped")
		return nil
	default:
		return err
	}
}

// loop runs a cycle immediately and then on every tick.
func (d *Daemon) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *Daemon) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, d.cycleTimeout)
	defer cancel()

	summary, err := d.cycler.RunCycle(cycleCtx)
	d.cycleCount.Add(1)

	d.mu.Lock()
	d.lastErr = err
	if summary != nil {
		d.lastCycle = summary
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Error().Err(err).Msg("cycle failed")
	}
}

// Handler serves /metrics, /health, /-/healthy and /-/ready.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/-/healthy", d.handleHealth)
	mux.HandleFunc("/-/ready", d.handleReady)
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.Health())
}

func (d *Daemon) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !d.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready\n"))
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status    string                `json:"status"`
	Uptime    int64                 `json:"uptime_seconds"`
	Cycles    int64                 `json:"cycles"`
	LastError string                `json:"last_error,omitempty"`
	LastCycle *orchestrator.Summary `json:"last_cycle,omitempty"`
}

// Health returns daemon health status. A failed cycle does not make the
// process unhealthy; the next tick retries.
func (d *Daemon) Health() HealthStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := HealthStatus{
		Status:    "healthy",
		Uptime:    int64(time.Since(d.startTime).Seconds()),
		Cycles:    d.cycleCount.Load(),
		LastCycle: d.lastCycle,
	}
	if d.lastErr != nil {
		h.LastError = d.lastErr.Error()
	}
	return h
}

// CycleCount returns total cycles run
func (d *Daemon) CycleCount() int64 {
	return d.cycleCount.Load()
}

// ListenAddr returns the bound HTTP address, or "" before Start.
func (d *Daemon) ListenAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}
