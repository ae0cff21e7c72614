// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (w *recordingWriter) WritePoint(ctx context.Context, points ...*write.Point) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range points {
		w.lines = append(w.lines, write.PointToLineProtocol(p, time.Nanosecond))
	}
	return nil
}

var fixedTime = time.Unix(1700000000, 0)

func TestTreatmentPoint(t *testing.T) {
	p := TreatmentPoint(&TreatmentData{
		Bench:      "rotate",
		LongKey:    "width:2/len:1001_sort:true",
		Rank:       "best",
		T:          2,
		I:          1,
		A:          2,
		EstimateNs: 95,
		Valid:      true,
		Timestamp:  fixedTime,
	})

	want := "factorbench_treatment,bench=rotate,key=width:2/len:1001_sort:true,rank=best a=2i,estimate_ns=95,i=1i,t=2i 1700000000000000000\n"
	assert.Equal(t, want, write.PointToLineProtocol(p, time.Nanosecond))
}

func TestTreatmentPoint_Missing(t *testing.T) {
	p := TreatmentPoint(&TreatmentData{
		Bench:     "rotate",
		LongKey:   "width:5/len:1001_sort:false",
		Rank:      "missing",
		RunID:     "r1",
		T:         3,
		I:         2,
		A:         1,
		Timestamp: fixedTime,
	})

	for _, f := range p.FieldList() {
		assert.NotEqual(t, "estimate_ns", f.Key)
	}
	var runID string
	for _, tag := range p.TagList() {
		if tag.Key == "run_id" {
			runID = tag.Value
		}
	}
	assert.Equal(t, "r1", runID)
}

func TestSummaryPoint(t *testing.T) {
	p := SummaryPoint(&SummaryData{
		Bench:      "search",
		Inputs:     2,
		Algorithms: 2,
		Treatments: 4,
		RankCounts: map[string]int{"best": 2, "worst": 2},
		Duration:   1500 * time.Millisecond,
		Timestamp:  fixedTime,
	})

	want := "factorbench_run,bench=search algorithms=2i,best=2i,duration_ms=1500i,inputs=2i,treatments=4i,worst=2i 1700000000000000000\n"
	assert.Equal(t, want, write.PointToLineProtocol(p, time.Nanosecond))
}

func TestErrorPoint(t *testing.T) {
	p := ErrorPoint(&ErrorData{
		Bench:     "twosum",
		Key:       "len:4/alg:hash",
		Operation: "bench",
		ErrorType: "mismatch",
		Message:   "output mismatch",
		Timestamp: fixedTime,
	})

	want := `factorbench_error,bench=twosum,error_type=mismatch,operation=bench key="len:4/alg:hash",message="output mismatch" 1700000000000000000` + "\n"
	assert.Equal(t, want, write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_Records(t *testing.T) {
	w := &recordingWriter{}
	sink, err := NewInfluxSinkWithWriter(w)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.RecordTreatment(ctx, &TreatmentData{Bench: "b", LongKey: "k:1", Rank: "best", Timestamp: fixedTime}))
	require.NoError(t, sink.RecordSummary(ctx, &SummaryData{Bench: "b", Timestamp: fixedTime}))
	require.NoError(t, sink.RecordError(ctx, &ErrorData{Bench: "b", Timestamp: fixedTime}))
	require.NoError(t, sink.Flush(ctx))

	require.Len(t, w.lines, 3)
	assert.Contains(t, w.lines[0], MeasurementTreatment+",")
	assert.Contains(t, w.lines[1], MeasurementRun+",")
	assert.Contains(t, w.lines[2], MeasurementError+",")
}

func TestInfluxSink_Errors(t *testing.T) {
	t.Run("nil writer", func(t *testing.T) {
		_, err := NewInfluxSinkWithWriter(nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := NewInfluxSink(InfluxConfig{URL: "http://localhost:8086"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("write failure is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		sink, err := NewInfluxSinkWithWriter(&recordingWriter{err: boom})
		require.NoError(t, err)

		err = sink.RecordSummary(context.Background(), &SummaryData{Bench: "b"})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), MeasurementRun)
	})

	t.Run("nil data and closed", func(t *testing.T) {
		sink, err := NewInfluxSinkWithWriter(&recordingWriter{})
		require.NoError(t, err)

		assert.ErrorIs(t, sink.RecordTreatment(context.Background(), nil), ErrNilData)
		require.NoError(t, sink.Close())
		require.NoError(t, sink.Close())
		assert.ErrorIs(t, sink.RecordError(context.Background(), &ErrorData{}), ErrSinkClosed)
	})
}

func TestNewInfluxSink_ClosesClient(t *testing.T) {
	sink, err := NewInfluxSink(InfluxConfig{
		URL:    "http://127.0.0.1:1",
		Org:    "org",
		Bucket: "bucket",
	})
	require.NoError(t, err)
	require.NotNil(t, sink.client)
	assert.NoError(t, sink.Close())
}
