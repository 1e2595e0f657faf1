package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrops-br/price-watch-api/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// Telemetry holds all OpenTelemetry components
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	conn *grpc.ClientConn
}

// New sets up logging, tracing and metrics and installs them as the global
// providers. With cfg.Enabled unset nothing is exported over OTLP; spans are
// still created and metrics are still served on /metrics.
func New(ctx context.Context, cfg *config.OTLPConfig) (*Telemetry, error) {
	logger := initLogger(cfg)

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{
		Registry: newRegistry(),
		Logger:   logger,
	}

	if cfg.Enabled {
		logger.Info("Initializing OpenTelemetry",
			slog.String("endpoint", cfg.Endpoint),
			slog.String("service_name", cfg.ServiceName),
		)

		if t.conn, err = dialCollector(cfg.Endpoint); err != nil {
			return nil, err
		}
		if t.TracerProvider, err = initTracerProvider(ctx, t.conn, res); err != nil {
			_ = t.conn.Close()
			return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
	} else {
		t.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	}

	if t.MeterProvider, err = initMeterProvider(ctx, t.conn, res, t.Registry); err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(t.TracerProvider)
	otel.SetMeterProvider(t.MeterProvider)
	otel.SetTextMapPropagator(propagator())

	if cfg.Enabled {
		logger.Info("Telemetry initialized (OTLP + Prometheus exporters)")
	} else {
		logger.Info("Telemetry initialized without OTLP export")
	}
	return t, nil
}

// Shutdown flushes pending telemetry and releases the collector connection
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down OpenTelemetry")

	var errs []error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collector connection: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		t.Logger.Error("Failed to shutdown telemetry", slog.String("error", err.Error()))
		return err
	}

	t.Logger.Info("OpenTelemetry shutdown successfully")
	return nil
}
