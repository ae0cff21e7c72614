// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/AleutianAI/factorbench/services/factorial/estimate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "factorbench.harness"

// -----------------------------------------------------------------------------
// Local harness
// -----------------------------------------------------------------------------

// Local is an in-process timing harness.
//
// Description:
//
//	For every treatment Local calls the op for the warm-up time, derives
//	an iteration count per sample from the warm-up rate so all samples
//	together take about MeasurementTime, takes Samples timed samples, and
//	writes the statistics file under Root.
//
// Thread Safety: Groups of one Local may run concurrently. A single Group
// must be driven from one goroutine.
type Local struct {
	config Config
	logger *slog.Logger
}

// NewLocal creates a Local harness from DefaultConfig and options.
//
// Outputs:
//
//	*Local - The harness. Nil on error.
//	error  - Wraps ErrInvalidConfig if the resulting configuration is invalid.
//
// Example:
//
//	h, err := harness.NewLocal(
//	    harness.WithRoot("target/factorbench"),
//	    harness.WithSamples(20),
//	)
func NewLocal(opts ...Option) (*Local, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Local{config: config, logger: slog.Default()}, nil
}

// SetLogger replaces the harness logger. Nil values are ignored.
func (h *Local) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// Config returns a copy of the harness configuration.
func (h *Local) Config() Config {
	return h.config
}

// Group implements Harness.
func (h *Local) Group(ctx context.Context, name string) (Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group: %w", ErrEmptyName)
	}
	return &LocalGroup{
		harness: h,
		name:    name,
		stats:   make(map[string]Stats),
	}, nil
}

// LocalGroup is the Group returned by Local.
type LocalGroup struct {
	harness  *Local
	name     string
	mu       sync.Mutex
	finished bool
	stats    map[string]Stats
}

// Stats returns the statistics recorded for a treatment id.
func (g *LocalGroup) Stats(id string) (Stats, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.stats[id]
	return st, ok
}

// Bench implements Group.
//
// Description:
//
//	Warms up, samples, computes statistics and writes
//	{Root}/{group}/{sanitized id}/new/estimates.json. The context is
//	checked between calls; cancellation stops the treatment without
//	writing statistics.
//
// Outputs:
//
//	error - The op's first error, a context error, or a write failure.
func (g *LocalGroup) Bench(ctx context.Context, id string, op Op) error {
	g.mu.Lock()
	finished := g.finished
	g.mu.Unlock()
	if finished {
		return fmt.Errorf("bench %s: %w", id, ErrGroupFinished)
	}
	if id == "" {
		return fmt.Errorf("bench: %w", ErrEmptyName)
	}

	config := g.harness.config
	logger := g.harness.logger

	ctx, span := otel.Tracer(tracerName).Start(ctx, "harness.LocalGroup.Bench",
		trace.WithAttributes(
			attribute.String("harness.group", g.name),
			attribute.String("harness.id", id),
			attribute.String("harness.sampling", string(config.Sampling)),
		),
	)
	defer span.End()

	perIter, warmups, err := warmUp(ctx, op, config.WarmUpTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "warm-up failed")
		return fmt.Errorf("bench %s: %w", id, err)
	}

	d := iterationsPerSample(config, perIter)
	logger.Debug("warm-up complete",
		"group", g.name,
		"id", id,
		"calls", warmups,
		"ns_per_call", perIter,
		"iterations_per_sample", d,
	)

	samples, err := measure(ctx, op, config, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "measurement failed")
		return fmt.Errorf("bench %s: %w", id, err)
	}

	st := computeStats(samples, config.Sampling == SamplingLinear)
	path := estimate.Path(config.Root, g.name, id)
	if err := estimate.Write(path, st.File()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write statistics failed")
		return fmt.Errorf("bench %s: %w", id, err)
	}

	g.mu.Lock()
	g.stats[id] = st
	g.mu.Unlock()

	span.SetAttributes(
		attribute.Int("harness.samples", st.Samples),
		attribute.Float64("harness.mean_ns", st.Mean),
	)
	span.SetStatus(codes.Ok, "treatment timed")

	logger.Debug("treatment timed",
		"group", g.name,
		"id", id,
		"mean_ns", st.Mean,
		"slope_ns", st.Slope,
		"path", path,
	)
	return nil
}

// Finish implements Group.
func (g *LocalGroup) Finish(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finished = true
	return nil
}

// -----------------------------------------------------------------------------
// Timing loops
// -----------------------------------------------------------------------------

// warmUp calls op until budget has elapsed (at least once) and returns the
// observed nanoseconds per call.
func warmUp(ctx context.Context, op Op, budget time.Duration) (float64, int64, error) {
	var calls int64
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return 0, calls, err
		}
		out, err := op()
		if err != nil {
			return 0, calls, err
		}
		runtime.KeepAlive(out)
		calls++
		if time.Since(start) >= budget {
			break
		}
	}
	perIter := float64(time.Since(start).Nanoseconds()) / float64(calls)
	return math.Max(perIter, 1), calls, nil
}

// iterationsPerSample picks d so the samples fill MeasurementTime.
func iterationsPerSample(config Config, perIter float64) int64 {
	s := int64(config.Samples)
	units := s
	if config.Sampling == SamplingLinear {
		units = s * (s + 1) / 2
	}

	d := int64(math.Ceil(float64(config.MeasurementTime.Nanoseconds()) / (perIter * float64(units))))
	if d < 1 {
		d = 1
	}

	if config.MaxIterations > 0 {
		largest := d
		if config.Sampling == SamplingLinear {
			largest = d * s
		}
		if largest > config.MaxIterations {
			d = config.MaxIterations
			if config.Sampling == SamplingLinear {
				d = config.MaxIterations / s
			}
			if d < 1 {
				d = 1
			}
		}
	}
	return d
}

// measure takes config.Samples timed samples.
func measure(ctx context.Context, op Op, config Config, d int64) ([]sample, error) {
	samples := make([]sample, 0, config.Samples)
	for k := 1; k <= config.Samples; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := d
		if config.Sampling == SamplingLinear {
			n = d * int64(k)
		}

		start := time.Now()
		for j := int64(0); j < n; j++ {
			out, err := op()
			if err != nil {
				return nil, err
			}
			runtime.KeepAlive(out)
		}
		samples = append(samples, sample{iters: n, elapsed: time.Since(start)})
	}
	return samples, nil
}

var _ Harness = (*Local)(nil)
var _ Group = (*LocalGroup)(nil)
