/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InstallMeterProvider sets the global OpenTelemetry meter provider to one
// whose readings are collected by reg, so the genai.token.* counters are
// gathered together with the xafc_* series. Call it once per registry.
func InstallMeterProvider(reg prometheus.Registerer) (func(context.Context) error, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

// InstallTracerProvider sets the global OpenTelemetry tracer provider to one
// that logs every finished span at debug level with the logger in ctx.
func InstallTracerProvider(ctx context.Context) func(context.Context) error {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&spanLogger{log: clog.FromContext(ctx)}),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown
}

// spanLogger is a span exporter writing to a clog logger
type spanLogger struct {
	log *clog.Logger
}

func (s *spanLogger) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		log := s.log.With("span", span.Name()).
			With("duration", span.EndTime().Sub(span.StartTime())).
			With("status", span.Status().Code.String())
		for _, kv := range span.Attributes() {
			log = log.With(string(kv.Key), kv.Value.Emit())
		}
		log.Debug("Span finished")
	}
	return nil
}

func (s *spanLogger) Shutdown(context.Context) error { return nil }
