// AngelaMos | 2026
// telemetry.go

package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carterperez-dev/templates/bookshelf/internal/config"
)

const (
	instrumentationName = "github.com/carterperez-dev/templates/bookshelf"
	defaultSampleRate   = 0.1
)

// Span attribute keys shared by the guard chain and the auth service.
const (
	AttrGuardStage  = attribute.Key("guard.stage")
	AttrErrorCode   = attribute.Key("error.code")
	AttrAuthOutcome = attribute.Key("auth.outcome")
	AttrUserRole    = attribute.Key("auth.role")
)

// Telemetry owns the tracer provider. With tracing disabled it holds an SDK
// provider without exporters, so spans are created but never leave the
// process.
type Telemetry struct {
	provider *sdktrace.TracerProvider
}

func NewTelemetry(
	ctx context.Context,
	otelCfg config.OtelConfig,
	appCfg config.AppConfig,
) (*Telemetry, error) {
	if !otelCfg.Enabled || otelCfg.Endpoint == "" {
		return &Telemetry{provider: sdktrace.NewTracerProvider()}, nil
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOptions(otelCfg)...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(otelCfg.ServiceName),
			semconv.ServiceVersion(appCfg.Version),
			attribute.String("environment", appCfg.Environment),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(otelCfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{provider: tp}, nil
}

func exporterOptions(cfg config.OtelConfig) []otlptracegrpc.Option {
	creds := credentials.NewClientTLSFromCert(nil, "")
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}

	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(5 * time.Second),
		otlptracegrpc.WithTLSCredentials(creds),
	}
}

// Sampler honors the caller's sampling decision and samples new traces at
// rate, falling back to 10% outside (0, 1].
func Sampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate > 1 {
		rate = defaultSampleRate
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := t.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}

	return nil
}

func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// StartSpan opens a child span on the global tracer provider.
func StartSpan(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(
		ctx,
		name,
		trace.WithAttributes(attrs...),
	)
}

// StartAuthSpan opens the span for one authentication operation, named
// "auth.<operation>".
func StartAuthSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, "auth."+operation,
		attribute.String("auth.operation", operation),
	)
}

// EndAuthSpan tags the span with the outcome and ends it. Expected failures
// such as bad credentials or throttling keep an unset status; only errors
// that map to a 5xx mark the span as failed.
func EndAuthSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(AttrAuthOutcome.String(outcome))

	if err != nil {
		appErr := ToAppError(err)
		span.SetAttributes(AttrErrorCode.String(appErr.Code))
		if appErr.StatusCode >= 500 {
			span.RecordError(err)
			span.SetStatus(codes.Error, appErr.Code)
		}
	}

	span.End()
}

// RecordGuardRejection adds a "guard.rejected" event to the request span. It
// is a no-op when the request carries no recording span.
func RecordGuardRejection(ctx context.Context, stage string, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	appErr := ToAppError(err)
	attrs := []attribute.KeyValue{
		AttrGuardStage.String(stage),
		AttrErrorCode.String(appErr.Code),
	}
	if appErr.RetryAfter > 0 {
		attrs = append(attrs, attribute.Int64("guard.retry_after_seconds",
			int64(appErr.RetryAfter.Seconds())))
	}

	span.AddEvent("guard.rejected", trace.WithAttributes(attrs...))
}

// RecordPrincipal tags the request span with the authenticated role. User IDs
// stay out of span attributes.
func RecordPrincipal(ctx context.Context, role Role) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(AttrUserRole.String(string(role)))
	}
}
