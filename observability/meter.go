package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httpsmgr/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric attribute keys.
const (
	AttrOutcome      = "outcome"
	AttrOutcomeClass = "class"
)

// TransactionMetrics holds the instruments recorded by the transaction manager.
type TransactionMetrics struct {
	dispatched metric.Int64Counter
	completed  metric.Int64Counter
	active     metric.Int64UpDownCounter
	duration   metric.Float64Histogram
}

// NewTransactionMetrics creates the transaction instruments on meter.
func NewTransactionMetrics(meter metric.Meter) (*TransactionMetrics, error) {
	dispatched, err := meter.Int64Counter("https.transactions.dispatched",
		metric.WithDescription("Transactions handed to the manager"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating https.transactions.dispatched counter: %w", err)
	}

	completed, err := meter.Int64Counter("https.transactions.completed",
		metric.WithDescription("Transactions that reached an outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating https.transactions.completed counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("https.transactions.active",
		metric.WithDescription("Transactions awaiting an outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating https.transactions.active gauge: %w", err)
	}

	duration, err := meter.Float64Histogram("https.transaction.duration",
		metric.WithDescription("Time from creation to outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating https.transaction.duration histogram: %w", err)
	}

	return &TransactionMetrics{
		dispatched: dispatched,
		completed:  completed,
		active:     active,
		duration:   duration,
	}, nil
}

// RecordDispatch counts a new transaction. live reports whether it entered
// the active list rather than failing at dispatch.
func (m *TransactionMetrics) RecordDispatch(ctx context.Context, live bool) {
	if m == nil {
		return
	}
	m.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.Bool("live", live)))
	if live {
		m.active.Add(ctx, 1)
	}
}

// RecordCompletion records an outcome. wasActive reports whether the
// transaction is leaving the active list.
func (m *TransactionMetrics) RecordCompletion(ctx context.Context, outcome int, elapsed time.Duration, wasActive bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrOutcome, strconv.Itoa(outcome)),
		attribute.String(AttrOutcomeClass, OutcomeClass(outcome)),
	)
	if wasActive {
		m.active.Add(ctx, -1)
	}
	m.completed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(AttrOutcomeClass, OutcomeClass(outcome)),
	))
}

// RecordAbandoned decrements the active gauge for a transaction closed
// before it reached an outcome.
func (m *TransactionMetrics) RecordAbandoned(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
}

// OutcomeClass buckets a status code as "2xx", "5xx" and so on.
func OutcomeClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
