// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// depsentryMeter is the one Meter every command uses to record its own
// run-level counters (files analyzed, bugs found, repairs attempted).
// Left nil when tracing is disabled, in which case recordCount is a
// no-op — every call site treats instrumentation as optional.
var depsentryMeter metric.Meter

// setupTelemetry wires the `internal/*` packages' otel.Tracer(...)
// calls to an actual exporter instead of the process-wide no-op
// tracer they get by default. Both signals land on stdout, matching
// the teacher's own dev-mode telemetry story; a real deployment would
// swap these for an OTLP exporter without touching any call site,
// since every producer only ever depends on the otel API package.
func setupTelemetry(ctx context.Context, traceOut, metricOut io.Writer) (shutdown func(context.Context) error, err error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String("depsentry")))
	if err != nil {
		return nil, err
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricOut))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	depsentryMeter = mp.Meter("depsentry.cli")

	return func(shutdownCtx context.Context) error {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return mp.Shutdown(shutdownCtx)
	}, nil
}

// recordCount adds delta to the named int64 counter, creating it on
// first use. A no-op when telemetry was never set up.
func recordCount(ctx context.Context, name, description string, delta int64) {
	if depsentryMeter == nil {
		return
	}
	counter, err := depsentryMeter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return
	}
	counter.Add(ctx, delta)
}
