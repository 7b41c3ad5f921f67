package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// Global telemetry handles.
var (
	Tracer = otel.Tracer("github.com/cloudscope/cloudscope")
	Meter  = otel.Meter("github.com/cloudscope/cloudscope")

	// PrometheusRegistry backs the /metrics endpoint. The OTEL exporter
	// registers itself with this registry (dual export pattern).
	PrometheusRegistry *promclient.Registry

	ResourcesScanned metric.Int64Counter
	ScanFailures     metric.Int64Counter
	ScanDuration     metric.Float64Histogram
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
	CacheWrites      metric.Int64Counter
)

// Config for OTEL initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTELEndpoint   string // e.g. "localhost:4317"; empty disables push export
	Insecure       bool
}

// InitOTEL initializes tracing and metrics. Prometheus export is always
// on; OTLP push export only when an endpoint is configured.
func InitOTEL(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cloudscope"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceShutdown, err := setupTraceProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to setup traces: %w", err)
	}

	metricShutdown, err := setupMetricProvider(ctx, cfg, res)
	if err != nil {
		_ = traceShutdown(ctx)
		return nil, fmt.Errorf("failed to setup metrics: %w", err)
	}

	if err := initInstruments(); err != nil {
		_ = traceShutdown(ctx)
		_ = metricShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize instruments: %w", err)
	}

	return func(ctx context.Context) error {
		var err error
		if e := traceShutdown(ctx); e != nil {
			err = fmt.Errorf("trace shutdown failed: %w", e)
		}
		if e := metricShutdown(ctx); e != nil && err == nil {
			err = fmt.Errorf("metric shutdown failed: %w", e)
		}
		return err
	}, nil
}

// setupTraceProvider configures the trace provider. Without an OTLP
// endpoint spans stay local (no exporter) but trace/span IDs still flow
// into logs through OTELHook.
func setupTraceProvider(ctx context.Context, cfg Config, res *resource.Resource) (func(context.Context) error, error) {
	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.OTELEndpoint != "" {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTELEndpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			))
		}

		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		))
	}

	provider := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Tracer = provider.Tracer("github.com/cloudscope/cloudscope")

	return provider.Shutdown, nil
}

// setupMetricProvider configures metrics with dual export: Prometheus
// for pull-based scraping plus OTLP push when an endpoint is set.
func setupMetricProvider(ctx context.Context, cfg Config, res *resource.Resource) (func(context.Context) error, error) {
	registry := promclient.NewRegistry()
	PrometheusRegistry = registry

	prometheusExporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	readers := []sdkmetric.Reader{prometheusExporter}

	if cfg.OTELEndpoint != "" {
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.OTELEndpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithDialOption(
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			))
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		))
	}

	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		providerOpts = append(providerOpts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(provider)
	Meter = provider.Meter("github.com/cloudscope/cloudscope")

	return provider.Shutdown, nil
}

// initInstruments creates all metric instruments.
func initInstruments() error {
	var err error

	ResourcesScanned, err = Meter.Int64Counter("cloudscope.resources.scanned.total",
		metric.WithDescription("Total number of resources returned by describers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resources_scanned counter: %w", err)
	}

	ScanFailures, err = Meter.Int64Counter("cloudscope.scan.failures.total",
		metric.WithDescription("Total number of describer calls that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scan_failures counter: %w", err)
	}

	ScanDuration, err = Meter.Float64Histogram("cloudscope.scan.duration.seconds",
		metric.WithDescription("Duration of full aggregation passes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scan_duration histogram: %w", err)
	}

	CacheHits, err = Meter.Int64Counter("cloudscope.cache.hits.total",
		metric.WithDescription("Resource cache hits"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache_hits counter: %w", err)
	}

	CacheMisses, err = Meter.Int64Counter("cloudscope.cache.misses.total",
		metric.WithDescription("Resource cache misses, including expiries and backend outages"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache_misses counter: %w", err)
	}

	CacheWrites, err = Meter.Int64Counter("cloudscope.cache.writes.total",
		metric.WithDescription("Resource cache writes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache_writes counter: %w", err)
	}

	return nil
}

// RecordScan is a nil-safe helper for instrumenting an aggregation
// pass; instruments are nil until InitOTEL runs (unit tests, library
// use), in which case recording is skipped.
func RecordScan(ctx context.Context, scanned, failed int64, elapsed time.Duration, attrs ...attribute.KeyValue) {
	if ResourcesScanned == nil || ScanFailures == nil || ScanDuration == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	ResourcesScanned.Add(ctx, scanned, opt)
	ScanFailures.Add(ctx, failed, opt)
	ScanDuration.Record(ctx, elapsed.Seconds(), opt)
}

// RecordCache is a nil-safe helper for cache hit/miss/write counters.
func RecordCache(ctx context.Context, hit, write bool) {
	if CacheHits == nil || CacheMisses == nil || CacheWrites == nil {
		return
	}
	switch {
	case write:
		CacheWrites.Add(ctx, 1)
	case hit:
		CacheHits.Add(ctx, 1)
	default:
		CacheMisses.Add(ctx, 1)
	}
}
