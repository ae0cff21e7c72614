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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/factorbench/services/factorial/factors"
	"github.com/AleutianAI/factorbench/services/factorial/harness"
	"github.com/AleutianAI/factorbench/services/factorial/summary"
	"github.com/AleutianAI/factorbench/services/factorial/telemetry"
	"github.com/AleutianAI/factorbench/services/factorial/treatment"
)

const tracerName = "factorbench.experiment"

// =============================================================================
// Runner
// =============================================================================

// Runner drives experiments through a harness and summarizes the results
// found under its artifact root.
//
// Thread Safety: A Runner may run several benches concurrently when its
// harness allows concurrent groups. Benches must have distinct names.
type Runner struct {
	harness   harness.Harness
	root      string
	logger    *slog.Logger
	sink      telemetry.Sink
	tolerance float64
	artifacts bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the run logger. Nil values are ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSink sets the telemetry sink. Nil values are ignored.
func WithSink(sink telemetry.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithTolerance sets the rank tolerance in nanoseconds.
func WithTolerance(tol float64) Option {
	return func(r *Runner) {
		if tol >= 0 {
			r.tolerance = tol
		}
	}
}

// WithoutArtifacts disables writing the CSV, prompt and benchfmt files.
func WithoutArtifacts() Option {
	return func(r *Runner) {
		r.artifacts = false
	}
}

// NewRunner creates a runner reading statistics from root, which must be
// the harness's own statistics root.
//
// Example:
//
//	h, _ := harness.NewLocal(harness.WithRoot(root))
//	runner := experiment.NewRunner(h, root, experiment.WithLogger(logger.Slog()))
func NewRunner(h harness.Harness, root string, opts ...Option) *Runner {
	r := &Runner{
		harness:   h,
		root:      root,
		logger:    slog.Default(),
		sink:      telemetry.NoOpSink{},
		tolerance: summary.DefaultTolerance,
		artifacts: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the artifact root.
func (r *Runner) Root() string {
	return r.root
}

// Run is the outcome of one Bench call.
type Run struct {
	// ID is a random run identifier.
	ID string

	// Report is the ranked summary.
	Report *summary.Report

	// Artifacts lists the written files. Zero when artifacts are disabled.
	Artifacts summary.Artifacts

	Started  time.Time
	Duration time.Duration
}

// =============================================================================
// Bench
// =============================================================================

// Bench runs every treatment of inputs × algs and summarizes the results.
//
// Description:
//
//	Input levels form the outer loop and algorithm levels the inner loop,
//	both in the order given. Each input is built once and shared by all
//	algorithm levels. Every treatment is timed by the harness under its
//	short key. The first call of a treatment runs ValidateOutput and
//	compares against ExpectedOutput; any failure aborts the whole run.
//	After the harness group finishes, the estimates are loaded, ranked and
//	written to the artifacts.
//
// Inputs:
//
//	ctx    - Checked between treatments. Must not be nil.
//	runner - The runner. Must have a harness.
//	exp    - The experiment.
//	name   - The bench name, used as the harness group name.
//	inputs - Input levels. May be empty.
//	algs   - Algorithm levels. May be empty.
//
// Outputs:
//
//	*Run  - The run. Nil on error.
//	error - *CorrectnessError, a harness error, a context error, or
//	        *summary.ArtifactError.
//
// Example:
//
//	run, err := experiment.Bench(ctx, runner, search.Experiment{}, "search", inputs, algs)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(run.Report.Render(ux.ModePlain))
func Bench[I, A factors.Levels, In, Out any](
	ctx context.Context,
	runner *Runner,
	exp Experiment[I, A, In, Out],
	name string,
	inputs []I,
	algs []A,
) (*Run, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}
	if runner == nil || runner.harness == nil {
		return nil, ErrNilHarness
	}

	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	grid := treatment.NewGrid(name, inputs, algs)
	logger := runner.logger.With("bench", name, "run_id", run.ID)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "experiment.Bench",
		trace.WithAttributes(
			attribute.String("experiment.bench", name),
			attribute.String("experiment.run_id", run.ID),
			attribute.Int("experiment.inputs", grid.NumInputs),
			attribute.Int("experiment.algorithms", grid.NumAlgs),
			attribute.Int("experiment.treatments", grid.Len()),
		),
	)
	defer span.End()

	fail := func(op, kind, key string, err error) (*Run, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		runner.recordError(ctx, logger, &telemetry.ErrorData{
			Bench:     name,
			Key:       key,
			Operation: op,
			ErrorType: kind,
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return nil, err
	}

	logger.Info(fmt.Sprintf("%s benchmarks with %d input levels and %d algorithm levels => %d treatments",
		name, grid.NumInputs, grid.NumAlgs, grid.Len()))

	metrics := newRunMetrics()
	group, err := runner.harness.Group(ctx, name)
	if err != nil {
		return fail("group", "harness", "", fmt.Errorf("open group %s: %w", name, err))
	}
	finished := false
	defer func() {
		if finished {
			return
		}
		if err := group.Finish(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("finish group after failed run", "bench", name, "error", err)
		}
	}()

	for i, level := range inputs {
		if err := ctx.Err(); err != nil {
			return fail("bench", "cancelled", "", err)
		}
		logger.Info(fmt.Sprintf("input level [%d/%d]", i+1, grid.NumInputs),
			"input", factors.LongKey(level))

		input := exp.BuildInput(level)
		for a, alg := range algs {
			if err := ctx.Err(); err != nil {
				return fail("bench", "cancelled", "", err)
			}
			tr := grid.At(i, a)
			logger.Info(fmt.Sprintf("treatment [%d/%d || %d/%d]", tr.T(), grid.Len(), tr.A(), grid.NumAlgs),
				"key", tr.LongKey,
				"id", tr.ShortKey,
			)

			op := treatmentOp(exp, name, tr, level, alg, input)
			started := time.Now()
			err := group.Bench(ctx, tr.ShortKey, op)
			metrics.record(ctx, name, time.Since(started), err)
			if err != nil {
				kind := "harness"
				var ce *CorrectnessError
				if errors.As(err, &ce) {
					kind = "correctness"
				}
				return fail("bench", kind, tr.LongKey, err)
			}
		}
	}

	finished = true
	if err := group.Finish(ctx); err != nil {
		return fail("finish", "harness", "", fmt.Errorf("finish group %s: %w", name, err))
	}

	m, err := summary.LoadMatrix(ctx, runner.root, grid, 0)
	if err != nil {
		return fail("summary", "cancelled", "", fmt.Errorf("load estimates: %w", err))
	}
	run.Report = summary.New(runner.root, grid, m, runner.tolerance)

	if runner.artifacts {
		run.Artifacts, err = run.Report.WriteArtifacts()
		if err != nil {
			return fail("artifacts", "io", "", err)
		}
		logger.Info("summary written", "csv", run.Artifacts.CSV, "prompt", run.Artifacts.Prompt)
	}

	run.Duration = time.Since(run.Started)
	runner.recordRun(ctx, logger, run)

	counts := run.Report.Counts()
	span.SetAttributes(
		attribute.Int("experiment.missing", counts[summary.RankMissing]),
		attribute.Int64("experiment.duration_ms", run.Duration.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "experiment completed")
	return run, nil
}

// treatmentOp returns the harness op of one treatment. Only its first call
// checks the output.
func treatmentOp[I, A factors.Levels, In, Out any](
	exp Experiment[I, A, In, Out],
	bench string,
	tr treatment.Treatment,
	level I,
	alg A,
	input In,
) harness.Op {
	checked := false
	return func() (any, error) {
		out := exp.Execute(alg, input)
		if checked {
			return out, nil
		}
		checked = true
		if err := checkOutput(exp, level, input, out); err != nil {
			err.Bench = bench
			err.Key = tr.LongKey
			err.T = tr.T()
			return out, err
		}
		return out, nil
	}
}

func checkOutput[I, A factors.Levels, In, Out any](
	exp Experiment[I, A, In, Out],
	level I,
	input In,
	got Out,
) *CorrectnessError {
	if v, ok := any(exp).(OutputValidator[I, In, Out]); ok {
		if err := v.ValidateOutput(level, input, got); err != nil {
			return &CorrectnessError{Err: fmt.Errorf("%w: %w", ErrValidationFailed, err)}
		}
	}
	if e, ok := any(exp).(ExpectedOutputter[I, In, Out]); ok {
		if want, ok := e.ExpectedOutput(level, input); ok && !cmp.Equal(want, got) {
			return &CorrectnessError{Err: ErrOutputMismatch, Diff: cmp.Diff(want, got)}
		}
	}
	return nil
}

// =============================================================================
// Telemetry
// =============================================================================

// recordRun sends the report to the sink. Sink failures are logged and
// do not fail the run.
func (r *Runner) recordRun(ctx context.Context, logger *slog.Logger, run *Run) {
	now := time.Now()
	for _, row := range run.Report.Rows() {
		err := r.sink.RecordTreatment(ctx, &telemetry.TreatmentData{
			Bench:      run.Report.Bench(),
			RunID:      run.ID,
			LongKey:    row.LongKey,
			ShortKey:   row.ShortKey,
			T:          row.T(),
			I:          row.I(),
			A:          row.A(),
			EstimateNs: row.Estimate.Ns,
			Valid:      row.Estimate.Valid,
			Rank:       row.Rank.String(),
			Timestamp:  now,
		})
		if err != nil {
			logger.Warn("telemetry: record treatment failed", "key", row.LongKey, "error", err)
		}
	}

	counts := make(map[string]int)
	for rank, n := range run.Report.Counts() {
		counts[rank.String()] = n
	}
	err := r.sink.RecordSummary(ctx, &telemetry.SummaryData{
		Bench:      run.Report.Bench(),
		RunID:      run.ID,
		Inputs:     run.Report.Grid.NumInputs,
		Algorithms: run.Report.Grid.NumAlgs,
		Treatments: run.Report.Grid.Len(),
		RankCounts: counts,
		Duration:   run.Duration,
		Timestamp:  now,
	})
	if err != nil {
		logger.Warn("telemetry: record summary failed", "error", err)
	}
}

func (r *Runner) recordError(ctx context.Context, logger *slog.Logger, data *telemetry.ErrorData) {
	logger.Error("benchmark run aborted",
		"operation", data.Operation,
		"key", data.Key,
		"error", data.Message,
	)
	if err := r.sink.RecordError(context.WithoutCancel(ctx), data); err != nil {
		logger.Warn("telemetry: record error failed", "error", err)
	}
}
