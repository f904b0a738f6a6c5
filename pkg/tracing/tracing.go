// Package tracing wires OpenTelemetry into the ingest, retrieval and model
// call paths.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/xhad/sourcebook"

// Config configures the OpenTelemetry exporter.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Endpoint is the OTLP gRPC endpoint, e.g. "localhost:4317".
	// If empty, tracing is disabled.
	Endpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64
}

func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "sourcebook",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// Provider wraps the OpenTelemetry tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// Init installs the global tracer provider. With no endpoint the global
// no-op provider is left in place.
func Init(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Endpoint == "" {
		return &Provider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// StartBatchSpan starts a span for one upsert batch.
func StartBatchSpan(ctx context.Context, workspaceID string, batch, size int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "ingest.batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workspace.id", workspaceID),
			attribute.Int("ingest.batch", batch),
			attribute.Int("ingest.batch_size", size),
		),
	)
}

// StartRetrieveSpan starts a span for one similarity search.
func StartRetrieveSpan(ctx context.Context, workspaceID string, topK int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "retrieval.retrieve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workspace.id", workspaceID),
			attribute.Int("retrieval.top_k", topK),
		),
	)
}

// StartLLMSpan starts a span for a completion call.
func StartLLMSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		),
	)
}

// RecordError records err on span, if any.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
