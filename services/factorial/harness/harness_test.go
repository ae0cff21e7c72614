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
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/AleutianAI/factorbench/services/factorial/estimate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastLocal(t *testing.T, opts ...Option) *Local {
	t.Helper()
	base := []Option{
		WithRoot(t.TempDir()),
		WithWarmUpTime(0),
		WithMeasurementTime(time.Millisecond),
		WithSamples(3),
		WithMaxIterations(300),
	}
	h, err := NewLocal(append(base, opts...)...)
	require.NoError(t, err)
	return h
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty root", func(c *Config) { c.Root = "" }, true},
		{"negative warm-up", func(c *Config) { c.WarmUpTime = -1 }, true},
		{"zero measurement", func(c *Config) { c.MeasurementTime = 0 }, true},
		{"one sample", func(c *Config) { c.Samples = 1 }, true},
		{"unknown sampling", func(c *Config) { c.Sampling = "auto" }, true},
		{"negative cap", func(c *Config) { c.MaxIterations = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSampling(t *testing.T) {
	s, err := ParseSampling("FLAT")
	require.NoError(t, err)
	assert.Equal(t, SamplingFlat, s)

	s, err = ParseSampling("")
	require.NoError(t, err)
	assert.Equal(t, SamplingLinear, s)

	_, err = ParseSampling("auto")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	c := DefaultConfig()
	for _, opt := range []Option{WithRoot(""), WithWarmUpTime(-1), WithMeasurementTime(0), WithSamples(1)} {
		opt(&c)
	}
	assert.Equal(t, DefaultConfig(), c)
}

func TestLocal_LinearWritesSlope(t *testing.T) {
	h := fastLocal(t)
	g, err := h.Group(context.Background(), "sum")
	require.NoError(t, err)

	calls := 0
	err = g.Bench(context.Background(), "n:10/alg:loop", func() (any, error) {
		calls++
		total := 0
		for i := 0; i < 10; i++ {
			total += i
		}
		return total, nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Finish(context.Background()))
	assert.Greater(t, calls, 3)

	path := estimate.Path(h.Config().Root, "sum", "n:10/alg:loop")
	v, ok := estimate.Read(path)
	require.True(t, ok, "statistics file missing at %s", path)
	assert.Greater(t, v, 0.0)

	st, ok := g.(*LocalGroup).Stats("n:10/alg:loop")
	require.True(t, ok)
	assert.True(t, st.HasSlope)
	assert.Equal(t, 3, st.Samples)
	assert.Equal(t, st.Slope, v)
}

func TestLocal_FlatWritesNullSlope(t *testing.T) {
	h := fastLocal(t, WithSampling(SamplingFlat))
	g, err := h.Group(context.Background(), "flat")
	require.NoError(t, err)

	require.NoError(t, g.Bench(context.Background(), "k:v", func() (any, error) { return 1, nil }))

	path := estimate.Path(h.Config().Root, "flat", "k:v")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slope": null`)

	v, ok := estimate.Read(path)
	require.True(t, ok)
	st, _ := g.(*LocalGroup).Stats("k:v")
	assert.Equal(t, st.Mean, v)
}

func TestLocal_OpErrorAborts(t *testing.T) {
	h := fastLocal(t)
	g, err := h.Group(context.Background(), "fail")
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = g.Bench(context.Background(), "k:1", func() (any, error) {
		calls++
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "k:1")
	assert.Equal(t, 1, calls)

	_, ok := estimate.Extract(h.Config().Root, "fail", "k:1")
	assert.False(t, ok)
}

func TestLocal_CancelledContext(t *testing.T) {
	h := fastLocal(t)
	g, err := h.Group(context.Background(), "cancel")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = g.Bench(ctx, "k:1", func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal_FinishedGroup(t *testing.T) {
	h := fastLocal(t)
	g, err := h.Group(context.Background(), "done")
	require.NoError(t, err)
	require.NoError(t, g.Finish(context.Background()))

	err = g.Bench(context.Background(), "k:1", func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrGroupFinished)
}

func TestLocal_EmptyNames(t *testing.T) {
	h := fastLocal(t)
	_, err := h.Group(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyName)

	g, err := h.Group(context.Background(), "g")
	require.NoError(t, err)
	assert.ErrorIs(t, g.Bench(context.Background(), "", nil), ErrEmptyName)
}

func TestLocal_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	h := fastLocal(t)
	g, err := h.Group(context.Background(), "traced")
	require.NoError(t, err)
	require.NoError(t, g.Bench(context.Background(), "k:1", func() (any, error) { return nil, nil }))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "harness.LocalGroup.Bench", spans[0].Name())
}

func TestIterationsPerSample(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		perIter float64
		want    int64
	}{
		{
			name:    "linear",
			config:  Config{MeasurementTime: 60 * time.Nanosecond * 100, Samples: 3, Sampling: SamplingLinear},
			perIter: 100,
			want:    10,
		},
		{
			name:    "flat",
			config:  Config{MeasurementTime: 3000 * time.Nanosecond, Samples: 3, Sampling: SamplingFlat},
			perIter: 100,
			want:    10,
		},
		{
			name:    "slow op gets one iteration",
			config:  Config{MeasurementTime: time.Nanosecond, Samples: 3, Sampling: SamplingLinear},
			perIter: 1e9,
			want:    1,
		},
		{
			name:    "linear cap",
			config:  Config{MeasurementTime: time.Second, Samples: 4, Sampling: SamplingLinear, MaxIterations: 100},
			perIter: 1,
			want:    25,
		},
		{
			name:    "flat cap",
			config:  Config{MeasurementTime: time.Second, Samples: 4, Sampling: SamplingFlat, MaxIterations: 100},
			perIter: 1,
			want:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, iterationsPerSample(tt.config, tt.perIter))
		})
	}
}

func TestComputeStats(t *testing.T) {
	samples := []sample{
		{iters: 1, elapsed: 10 * time.Nanosecond},
		{iters: 2, elapsed: 20 * time.Nanosecond},
		{iters: 3, elapsed: 30 * time.Nanosecond},
	}

	st := computeStats(samples, true)
	assert.Equal(t, 3, st.Samples)
	assert.InDelta(t, 10.0, st.Mean, 1e-9)
	assert.InDelta(t, 10.0, st.Median, 1e-9)
	assert.InDelta(t, 0.0, st.StdDev, 1e-9)
	assert.InDelta(t, 10.0, st.Slope, 1e-9)
	assert.InDelta(t, 0.0, st.SlopeErr, 1e-9)
	assert.True(t, st.HasSlope)

	flat := computeStats([]sample{
		{iters: 2, elapsed: 20 * time.Nanosecond},
		{iters: 2, elapsed: 40 * time.Nanosecond},
	}, false)
	assert.InDelta(t, 15.0, flat.Mean, 1e-9)
	assert.InDelta(t, 15.0, flat.Median, 1e-9)
	assert.False(t, flat.HasSlope)
	assert.Nil(t, flat.File().Slope)

	assert.Equal(t, Stats{}, computeStats(nil, true))
}

// =============================================================================
// Testing Adapter Tests
// =============================================================================

// filteredRunner behaves like a *testing.B whose -bench pattern excludes
// every sub-benchmark: Run reports success without calling f.
type filteredRunner struct {
	logs []string
}

func (r *filteredRunner) Run(name string, f func(b *testing.B)) bool { return true }

func (r *filteredRunner) Logf(format string, args ...any) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func TestTesting_FilteredSubBenchmarkWritesNothing(t *testing.T) {
	root := t.TempDir()
	runner := &filteredRunner{}
	h := &Testing{b: runner, root: root}

	g, err := h.Group(context.Background(), "two_sum")
	require.NoError(t, err)

	calls := 0
	err = g.Bench(context.Background(), "n:10", func() (any, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Finish(context.Background()))

	assert.Zero(t, calls)
	assert.NoFileExists(t, estimate.Path(root, "two_sum", "n:10"))
	_, ok := estimate.Extract(root, "two_sum", "n:10")
	assert.False(t, ok)
	require.Len(t, runner.logs, 1)
	assert.Contains(t, runner.logs[0], "not run")
}

func TestTesting_WritesMeanWhenRun(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full benchmark")
	}
	root := t.TempDir()

	var benchErr error
	calls := 0
	testing.Benchmark(func(b *testing.B) {
		g, err := NewTesting(b, root).Group(context.Background(), "two_sum")
		if err != nil {
			benchErr = err
			return
		}
		benchErr = g.Bench(context.Background(), "n:10", func() (any, error) {
			calls++
			return calls, nil
		})
	})
	require.NoError(t, benchErr)

	assert.Positive(t, calls)
	v, ok := estimate.Extract(root, "two_sum", "n:10")
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
}
