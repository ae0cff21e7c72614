// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package experiment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "factorbench.experiment"

// runMetrics are the OpenTelemetry instruments of a run. They are no-ops
// until a meter provider is installed.
type runMetrics struct {
	treatments metric.Int64Counter
	wallTime   metric.Float64Histogram
}

func newRunMetrics() runMetrics {
	meter := otel.Meter(meterName)

	// Instrument creation only fails on invalid names; the no-op
	// instruments returned alongside the error are still usable.
	treatments, _ := meter.Int64Counter("factorbench.treatments",
		metric.WithDescription("Treatments benchmarked, by outcome"),
		metric.WithUnit("{treatment}"),
	)
	wallTime, _ := meter.Float64Histogram("factorbench.treatment.wall_time",
		metric.WithDescription("Wall-clock time the harness spent on one treatment"),
		metric.WithUnit("s"),
	)
	return runMetrics{treatments: treatments, wallTime: wallTime}
}

func (m runMetrics) record(ctx context.Context, bench string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("bench", bench),
		attribute.String("status", status),
	)
	m.treatments.Add(ctx, 1, attrs)
	m.wallTime.Record(ctx, elapsed.Seconds(), attrs)
}
