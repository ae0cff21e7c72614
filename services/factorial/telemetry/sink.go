// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports factorial run results to metrics backends.
//
// A Sink receives one TreatmentData per treatment once the summary is
// built, one SummaryData per run, and ErrorData for failed runs. Sinks are
// write-only; the report artifacts remain the source of truth.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilData is returned when nil data is provided to a recording method.
	ErrNilData = errors.New("data must not be nil")

	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")

	// ErrInvalidConfig is returned when a sink configuration is invalid.
	ErrInvalidConfig = errors.New("invalid telemetry configuration")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink records factorial run telemetry.
//
// Thread Safety: All implementations must be safe for concurrent use.
type Sink interface {
	// RecordTreatment records the estimate and rank of one treatment.
	RecordTreatment(ctx context.Context, data *TreatmentData) error

	// RecordSummary records the shape and outcome of one run.
	RecordSummary(ctx context.Context, data *SummaryData) error

	// RecordError records a failed run or operation.
	RecordError(ctx context.Context, data *ErrorData) error

	// Flush sends buffered data, if any.
	Flush(ctx context.Context) error

	// Close releases resources. Recording fails after Close.
	Close() error
}

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// TreatmentData is the result of one treatment.
type TreatmentData struct {
	// Bench is the bench name.
	Bench string

	// RunID identifies the run.
	RunID string

	// LongKey and ShortKey identify the treatment.
	LongKey  string
	ShortKey string

	// T, I and A are the 1-based treatment, input and algorithm indices.
	T, I, A int

	// EstimateNs is the estimate in nanoseconds; meaningful when Valid.
	EstimateNs float64
	Valid      bool

	// Rank is the rank name within the input level.
	Rank string

	// Timestamp is when the run finished.
	Timestamp time.Time
}

// SummaryData describes one finished run.
type SummaryData struct {
	Bench      string
	RunID      string
	Inputs     int
	Algorithms int
	Treatments int

	// RankCounts maps rank names to the number of treatments.
	RankCounts map[string]int

	Duration  time.Duration
	Timestamp time.Time
}

// ErrorData describes a failure.
type ErrorData struct {
	Bench string

	// Key is the failing treatment's long key, if any.
	Key string

	// Operation is the failing step, e.g. "bench", "artifacts".
	Operation string

	// ErrorType classifies the failure, e.g. "mismatch", "io".
	ErrorType string

	Message   string
	Timestamp time.Time
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink multiplexes telemetry to multiple sinks. Every child is
// called; errors are joined.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink creates a composite of at least one non-nil sink.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	var valid []Sink
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

// RecordTreatment implements Sink.
func (c *CompositeSink) RecordTreatment(ctx context.Context, data *TreatmentData) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordTreatment(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSummary implements Sink.
func (c *CompositeSink) RecordSummary(ctx context.Context, data *SummaryData) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordSummary(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordError implements Sink.
func (c *CompositeSink) RecordError(ctx context.Context, data *ErrorData) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordError(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush implements Sink.
func (c *CompositeSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (c *CompositeSink) Close() error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-op and memory sinks
// -----------------------------------------------------------------------------

// NoOpSink discards all telemetry.
type NoOpSink struct{}

func (NoOpSink) RecordTreatment(context.Context, *TreatmentData) error { return nil }
func (NoOpSink) RecordSummary(context.Context, *SummaryData) error     { return nil }
func (NoOpSink) RecordError(context.Context, *ErrorData) error         { return nil }
func (NoOpSink) Flush(context.Context) error                           { return nil }
func (NoOpSink) Close() error                                          { return nil }

// MemorySink keeps all telemetry in memory. The serve command uses it to
// expose the latest results; tests use it to observe the runner.
type MemorySink struct {
	mu         sync.Mutex
	closed     bool
	treatments []TreatmentData
	summaries  []SummaryData
	errors     []ErrorData
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// RecordTreatment implements Sink.
func (m *MemorySink) RecordTreatment(ctx context.Context, data *TreatmentData) error {
	if data == nil {
		return ErrNilData
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	m.treatments = append(m.treatments, *data)
	return nil
}

// RecordSummary implements Sink.
func (m *MemorySink) RecordSummary(ctx context.Context, data *SummaryData) error {
	if data == nil {
		return ErrNilData
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	m.summaries = append(m.summaries, *data)
	return nil
}

// RecordError implements Sink.
func (m *MemorySink) RecordError(ctx context.Context, data *ErrorData) error {
	if data == nil {
		return ErrNilData
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	m.errors = append(m.errors, *data)
	return nil
}

// Flush implements Sink.
func (m *MemorySink) Flush(ctx context.Context) error { return nil }

// Close implements Sink.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Treatments returns a copy of the recorded treatments.
func (m *MemorySink) Treatments() []TreatmentData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TreatmentData(nil), m.treatments...)
}

// Summaries returns a copy of the recorded summaries.
func (m *MemorySink) Summaries() []SummaryData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SummaryData(nil), m.summaries...)
}

// Errors returns a copy of the recorded errors.
func (m *MemorySink) Errors() []ErrorData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ErrorData(nil), m.errors...)
}

var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = NoOpSink{}
	_ Sink = (*MemorySink)(nil)
)
