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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	NoOpSink
	err error
}

func (f failingSink) RecordTreatment(context.Context, *TreatmentData) error { return f.err }
func (f failingSink) Close() error                                          { return f.err }

func TestNewCompositeSink(t *testing.T) {
	_, err := NewCompositeSink()
	assert.ErrorIs(t, err, ErrNoSinks)

	_, err = NewCompositeSink(nil, nil)
	assert.ErrorIs(t, err, ErrNoSinks)

	c, err := NewCompositeSink(nil, NoOpSink{})
	require.NoError(t, err)
	assert.Len(t, c.sinks, 1)
}

func TestCompositeSink_FansOut(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	c, err := NewCompositeSink(a, b)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.RecordTreatment(ctx, &TreatmentData{LongKey: "k:1"}))
	require.NoError(t, c.RecordSummary(ctx, &SummaryData{Bench: "b"}))
	require.NoError(t, c.RecordError(ctx, &ErrorData{Message: "x"}))
	require.NoError(t, c.Flush(ctx))

	for _, m := range []*MemorySink{a, b} {
		assert.Len(t, m.Treatments(), 1)
		assert.Len(t, m.Summaries(), 1)
		assert.Len(t, m.Errors(), 1)
	}
}

func TestCompositeSink_JoinsErrors(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	mem := NewMemorySink()
	c, err := NewCompositeSink(failingSink{err: e1}, mem, failingSink{err: e2})
	require.NoError(t, err)

	err = c.RecordTreatment(context.Background(), &TreatmentData{})
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	// Healthy sinks still receive the record.
	assert.Len(t, mem.Treatments(), 1)

	err = c.Close()
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink()
	ctx := context.Background()

	assert.ErrorIs(t, m.RecordTreatment(ctx, nil), ErrNilData)
	assert.ErrorIs(t, m.RecordSummary(ctx, nil), ErrNilData)
	assert.ErrorIs(t, m.RecordError(ctx, nil), ErrNilData)

	require.NoError(t, m.RecordTreatment(ctx, &TreatmentData{T: 1}))
	got := m.Treatments()
	got[0].T = 99
	assert.Equal(t, 1, m.Treatments()[0].T, "Treatments must return a copy")

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.RecordSummary(ctx, &SummaryData{}), ErrSinkClosed)
}
