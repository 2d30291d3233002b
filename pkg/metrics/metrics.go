// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/pkg"
)

const serviceName = "canopy"

var _ Provider = (*manager)(nil)

// Provider owns the prometheus registry and the tracer provider of a canopy run.
type Provider interface {
	// GetRegistry returns the prometheus registry instance
	// containing the registered prometheus collectors
	GetRegistry() *prometheus.Registry
	// Register adds collectors to the registry. Collectors registered twice are kept once.
	Register(ctx context.Context, cs ...prometheus.Collector)
	// Handler serves the registry in the prometheus exposition format
	Handler() http.Handler
	// InitTracing initializes the OpenTelemetry tracing
	InitTracing(ctx context.Context) error
	// Shutdown closes the metrics and tracing
	Shutdown(ctx context.Context) error
}

type manager struct {
	config   Config
	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
}

// New creates the registry holding the runtime collectors.
//
//nolint:gocritic
func New(config Config) Provider {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &manager{
		config:   config,
		registry: registry,
	}
}

func (m *manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *manager) Register(ctx context.Context, cs ...prometheus.Collector) {
	log := logger.FromContext(ctx)
	for _, c := range cs {
		err := m.registry.Register(c)
		var are prometheus.AlreadyRegisteredError
		switch {
		case err == nil:
		case errors.As(err, &are):
			log.DebugContext(ctx, "Metrics collector already registered")
		default:
			log.ErrorContext(ctx, "Could not register metrics collector", "error", err)
		}
	}
}

func (m *manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// InitTracing installs a global tracer provider exporting to the configured backend.
// Spans of remote exporters are batched, local exporters receive every span as it ends.
func (m *manager) InitTracing(ctx context.Context) error {
	log := logger.FromContext(ctx)
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithProcessPID(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion()),
		),
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create resource", "error", err)
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := m.config.Exporter.Create(ctx, &m.config)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create exporter", "error", err)
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(m.config.sampler()),
		sdktrace.WithSpanProcessor(m.spanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	m.tp = tp
	log.DebugContext(ctx, "Tracing initialized with new provider", "exporter", m.config.Exporter, "sampleRatio", m.config.SampleRatio)
	return nil
}

func (m *manager) spanProcessor(exporter sdktrace.SpanExporter) sdktrace.SpanProcessor {
	if !m.config.Exporter.IsExporting() {
		return sdktrace.NewSimpleSpanProcessor(exporter)
	}

	// a discovery emits one span per subnet and per hop
	const (
		batchTimeout = 5 * time.Second
		maxQueueSize = 4096
		maxBatchSize = 256
	)
	return sdktrace.NewBatchSpanProcessor(exporter,
		sdktrace.WithBatchTimeout(batchTimeout),
		sdktrace.WithMaxQueueSize(maxQueueSize),
		sdktrace.WithMaxExportBatchSize(maxBatchSize),
	)
}

// Shutdown flushes pending spans and stops the tracer provider.
func (m *manager) Shutdown(ctx context.Context) error {
	if m.tp == nil {
		return nil
	}
	if err := m.tp.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}

func serviceVersion() string {
	if pkg.Version == "" {
		return "dev"
	}
	return pkg.Version
}
