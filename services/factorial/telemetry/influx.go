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
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Influx measurement names.
const (
	MeasurementTreatment = "factorbench_treatment"
	MeasurementRun       = "factorbench_run"
	MeasurementError     = "factorbench_error"
)

// PointWriter writes points synchronously. api.WriteAPIBlocking satisfies it.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxConfig configures an InfluxSink created by NewInfluxSink.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
}

// InfluxSink writes factorial results as InfluxDB points, one point per
// call. Treatments without an estimate are written without the
// estimate_ns field.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	writer PointWriter
	client influxdb2.Client

	mu     sync.RWMutex
	closed bool
}

// NewInfluxSink connects to an InfluxDB v2 server.
//
// Description:
//
//	Creates a client and a blocking write API for the configured org and
//	bucket. No request is made until the first Record call.
//
// Outputs:
//
//	*InfluxSink - The sink. Nil on error.
//	error       - ErrInvalidConfig if URL, org or bucket are missing.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: influx url, org and bucket are required", ErrInvalidConfig)
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		client: client,
	}, nil
}

// NewInfluxSinkWithWriter wraps an existing writer. Close does not close
// the writer.
func NewInfluxSinkWithWriter(w PointWriter) (*InfluxSink, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil point writer", ErrInvalidConfig)
	}
	return &InfluxSink{writer: w}, nil
}

func (s *InfluxSink) write(ctx context.Context, p *write.Point) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write %s: %w", p.Name(), err)
	}
	return nil
}

// RecordTreatment implements Sink.
func (s *InfluxSink) RecordTreatment(ctx context.Context, data *TreatmentData) error {
	if data == nil {
		return ErrNilData
	}
	return s.write(ctx, TreatmentPoint(data))
}

// RecordSummary implements Sink.
func (s *InfluxSink) RecordSummary(ctx context.Context, data *SummaryData) error {
	if data == nil {
		return ErrNilData
	}
	return s.write(ctx, SummaryPoint(data))
}

// RecordError implements Sink.
func (s *InfluxSink) RecordError(ctx context.Context, data *ErrorData) error {
	if data == nil {
		return ErrNilData
	}
	return s.write(ctx, ErrorPoint(data))
}

// Flush is a no-op; writes are blocking.
func (s *InfluxSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// Close closes the owned client, if any. Idempotent.
func (s *InfluxSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Points
// -----------------------------------------------------------------------------

// TreatmentPoint converts a treatment result into a point tagged with
// bench, treatment key and rank.
func TreatmentPoint(d *TreatmentData) *write.Point {
	tags := map[string]string{
		"bench": orUnknown(d.Bench),
		"key":   orUnknown(d.LongKey),
		"rank":  orUnknown(d.Rank),
	}
	if d.RunID != "" {
		tags["run_id"] = d.RunID
	}
	fields := map[string]interface{}{
		"t": d.T,
		"i": d.I,
		"a": d.A,
	}
	if d.Valid {
		fields["estimate_ns"] = d.EstimateNs
	}
	return influxdb2.NewPoint(MeasurementTreatment, tags, fields, stamp(d.Timestamp))
}

// SummaryPoint converts a run summary into a point. Each rank count
// becomes an integer field named after the rank.
func SummaryPoint(d *SummaryData) *write.Point {
	tags := map[string]string{"bench": orUnknown(d.Bench)}
	if d.RunID != "" {
		tags["run_id"] = d.RunID
	}
	fields := map[string]interface{}{
		"inputs":      d.Inputs,
		"algorithms":  d.Algorithms,
		"treatments":  d.Treatments,
		"duration_ms": d.Duration.Milliseconds(),
	}
	for rank, n := range d.RankCounts {
		fields[rank] = n
	}
	return influxdb2.NewPoint(MeasurementRun, tags, fields, stamp(d.Timestamp))
}

// ErrorPoint converts a failure into a point.
func ErrorPoint(d *ErrorData) *write.Point {
	tags := map[string]string{
		"bench":      orUnknown(d.Bench),
		"operation":  orUnknown(d.Operation),
		"error_type": orUnknown(d.ErrorType),
	}
	fields := map[string]interface{}{
		"message": d.Message,
	}
	if d.Key != "" {
		fields["key"] = d.Key
	}
	return influxdb2.NewPoint(MeasurementError, tags, fields, stamp(d.Timestamp))
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

var _ Sink = (*InfluxSink)(nil)
