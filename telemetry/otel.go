// Package telemetry carries logging, tracing and metrics for wsreap.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/yairfalse/wsreap"

// Tracer is the process tracer. It is a no-op until InitOTEL runs.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// Config for OTEL initialization
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317". Empty
	// disables push export; Prometheus scraping is always on.
	Endpoint string
	Insecure bool
}

// Providers holds what InitOTEL installed.
type Providers struct {
	// Registry is scraped by the daemon's /metrics endpoint.
	Registry *promclient.Registry
	Metrics  *Metrics

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// InitOTEL installs global trace and metric providers with a Prometheus
// reader and, when an endpoint is configured, OTLP exporters.
func InitOTEL(ctx context.Context, cfg Config) (*Providers, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wsreap"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("cloud.provider", "aws"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Providers{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		_ = p.tracerProvider.Shutdown(ctx)
		return nil, err
	}

	p.Metrics, err = NewMetrics(p.meterProvider.Meter(instrumentationName))
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	return p, nil
}

func (p *Providers) setupTracing(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.Endpoint != "" {
		traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithDialOption(
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			))
		}
		exp, err := otlptracegrpc.New(ctx, traceOpts...)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Tracer = p.tracerProvider.Tracer(instrumentationName)

	return nil
}

// setupMetrics wires the Prometheus pull reader and the optional OTLP
// push reader into one meter provider.
func (p *Providers) setupMetrics(ctx context.Context, cfg Config, res *resource.Resource) error {
	p.Registry = promclient.NewRegistry()

	promExporter, err := prometheus.New(prometheus.WithRegisterer(p.Registry))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	if cfg.Endpoint != "" {
		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			metricOpts = append(metricOpts, otlpmetricgrpc.WithDialOption(
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			))
		}
		exp, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			return fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second)),
		))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)

	return nil
}

// ForceFlush exports buffered spans and metrics without shutting down.
func (p *Providers) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush tracer: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush meter: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and shuts down the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter: %w", err))
		}
	}
	return errors.Join(errs...)
}
