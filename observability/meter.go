package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/voicegate/logger"
)

// Metric exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Exporter       string        `yaml:"exporter" mapstructure:"exporter"`
	ServiceName    string        `yaml:"-" mapstructure:"-"`
	ServiceVersion string        `yaml:"-" mapstructure:"-"`
	Environment    string        `yaml:"-" mapstructure:"-"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults that expose metrics for Prometheus.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		Enabled:        true,
		Exporter:       ExporterPrometheus,
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// Validate checks the exporter name.
func (c *MeterConfig) Validate() error {
	switch c.Exporter {
	case ExporterPrometheus, ExporterOTLP:
		return nil
	default:
		return fmt.Errorf("metrics.exporter must be %q or %q (got: %q)", ExporterPrometheus, ExporterOTLP, c.Exporter)
	}
}

// InitMeter installs a meter provider as the global provider. The
// prometheus exporter registers with the default Prometheus registry, so
// promhttp.Handler serves its instruments.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	reader, err := newReader(ctx, config)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"exporter", config.Exporter,
		"endpoint", config.Endpoint,
	))
	return mp, nil
}

func newReader(ctx context.Context, config *MeterConfig) (sdkmetric.Reader, error) {
	if config.Exporter == ExporterPrometheus {
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		return exporter, nil
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	return sdkmetric.NewPeriodicReader(exporter, readerOpts...), nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
