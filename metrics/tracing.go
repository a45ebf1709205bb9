package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kenneth/apack/apackerr"
)

// TracerOptions selects which exporter NewTracerProvider wires up.
type TracerOptions struct {
	// Exporter is "stdout" or "otlp". Empty defaults to "stdout".
	Exporter string
	// OTLPEndpoint is required when Exporter is "otlp".
	OTLPEndpoint string
	ServiceName  string
}

// NewTracerProvider builds an sdktrace.TracerProvider exporting spans
// to stdout (for local debugging) or an OTLP collector.
func NewTracerProvider(ctx context.Context, opts TracerOptions) (*sdktrace.TracerProvider, error) {
	var exp sdktrace.SpanExporter
	var err error
	switch opts.Exporter {
	case "", "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if opts.OTLPEndpoint == "" {
			return nil, apackerr.New(apackerr.KindConfiguration, "metrics-new-tracer-provider", fmt.Errorf("otlp exporter requires an endpoint"))
		}
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opts.OTLPEndpoint), otlptracegrpc.WithInsecure())
	default:
		return nil, apackerr.New(apackerr.KindConfiguration, "metrics-new-tracer-provider", fmt.Errorf("unknown exporter %q", opts.Exporter))
	}
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "metrics-new-tracer-provider", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}

// StartSpan starts a named span using the global tracer provider, for
// call sites that don't want to hold a *sdktrace.TracerProvider.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("apack").Start(ctx, name)
}
