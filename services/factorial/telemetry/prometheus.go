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
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrRegistrationFailed is returned when metric registration fails.
var ErrRegistrationFailed = errors.New("metric registration failed")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// PrometheusConfig configures the Prometheus sink.
type PrometheusConfig struct {
	// Namespace is the metrics namespace. Required.
	Namespace string

	// Subsystem is the metrics subsystem. Required.
	Subsystem string

	// Registry is the registerer to use. If nil, uses
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// DurationBuckets are histogram buckets for run durations in seconds.
	DurationBuckets []float64

	// MaxLabelCardinality is the maximum number of unique values tracked
	// per label. Further values are mapped to "_other". Default: 1000.
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns the factorbench namespace with default
// buckets.
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace:           "factorbench",
		Subsystem:           "grid",
		DurationBuckets:     []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		MaxLabelCardinality: 1000,
	}
}

// Validate checks that required fields are set.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Prometheus Sink
// -----------------------------------------------------------------------------

// PrometheusSink exposes factorial results as Prometheus metrics.
//
// Description:
//
//	Metrics (with the configured namespace and subsystem):
//	  treatment_estimate_nanoseconds{bench,treatment}  gauge, latest estimate
//	  treatments_total{bench,rank}                     counter
//	  runs_total{bench}                                counter
//	  run_duration_seconds{bench}                      histogram
//	  errors_total{bench,operation,error_type}         counter
//
//	Treatments without an estimate are counted but set no gauge.
//
// Thread Safety: Safe for concurrent use.
type PrometheusSink struct {
	config   PrometheusConfig
	registry prometheus.Registerer

	estimate    *prometheus.GaugeVec
	treatments  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool

	collectors []prometheus.Collector

	labelMu        sync.RWMutex
	seenLabels     map[string]map[string]struct{}
	maxCardinality int
}

// NewPrometheusSink creates and registers the factorbench collectors.
//
// Outputs:
//
//	*PrometheusSink - The sink. Nil on error.
//	error           - ErrInvalidConfig or ErrRegistrationFailed.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	cfg := telemetry.DefaultPrometheusConfig()
//	cfg.Registry = reg
//	sink, err := telemetry.NewPrometheusSink(cfg)
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = DefaultPrometheusConfig().DurationBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	maxCard := cfg.MaxLabelCardinality
	if maxCard <= 0 {
		maxCard = 1000
	}

	s := &PrometheusSink{
		config:         cfg,
		registry:       registry,
		seenLabels:     make(map[string]map[string]struct{}),
		maxCardinality: maxCard,
	}

	s.estimate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "treatment_estimate_nanoseconds",
		Help:      "Latest estimated time per execution of a treatment in nanoseconds",
	}, []string{"bench", "treatment"})

	s.treatments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "treatments_total",
		Help:      "Treatments summarized, by rank within their input level",
	}, []string{"bench", "rank"})

	s.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "runs_total",
		Help:      "Completed factorial runs",
	}, []string{"bench"})

	s.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of factorial runs in seconds",
		Buckets:   cfg.DurationBuckets,
	}, []string{"bench"})

	s.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "errors_total",
		Help:      "Failed factorial operations",
	}, []string{"bench", "operation", "error_type"})

	s.collectors = []prometheus.Collector{s.estimate, s.treatments, s.runs, s.runDuration, s.errorsTotal}
	for i, c := range s.collectors {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
			s.collectors[i] = already.ExistingCollector
		}
	}
	s.rebind()

	return s, nil
}

// rebind points the vectors at already-registered collectors when the
// registry held them from an earlier sink.
func (s *PrometheusSink) rebind() {
	if v, ok := s.collectors[0].(*prometheus.GaugeVec); ok {
		s.estimate = v
	}
	if v, ok := s.collectors[1].(*prometheus.CounterVec); ok {
		s.treatments = v
	}
	if v, ok := s.collectors[2].(*prometheus.CounterVec); ok {
		s.runs = v
	}
	if v, ok := s.collectors[3].(*prometheus.HistogramVec); ok {
		s.runDuration = v
	}
	if v, ok := s.collectors[4].(*prometheus.CounterVec); ok {
		s.errorsTotal = v
	}
}

func (s *PrometheusSink) checkOpen(ctx context.Context, data any) error {
	if ctx == nil {
		return ErrNilContext
	}
	if data == nil {
		return ErrNilData
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// RecordTreatment implements Sink.
func (s *PrometheusSink) RecordTreatment(ctx context.Context, data *TreatmentData) error {
	if data == nil {
		return ErrNilData
	}
	if err := s.checkOpen(ctx, data); err != nil {
		return err
	}

	bench := s.sanitizeLabel("bench", orUnknown(data.Bench))
	rank := s.sanitizeLabel("rank", orUnknown(data.Rank))
	s.treatments.WithLabelValues(bench, rank).Inc()

	if data.Valid {
		key := s.sanitizeLabel("treatment", orUnknown(data.LongKey))
		s.estimate.WithLabelValues(bench, key).Set(data.EstimateNs)
	}
	return nil
}

// RecordSummary implements Sink.
func (s *PrometheusSink) RecordSummary(ctx context.Context, data *SummaryData) error {
	if data == nil {
		return ErrNilData
	}
	if err := s.checkOpen(ctx, data); err != nil {
		return err
	}

	bench := s.sanitizeLabel("bench", orUnknown(data.Bench))
	s.runs.WithLabelValues(bench).Inc()
	s.runDuration.WithLabelValues(bench).Observe(data.Duration.Seconds())
	return nil
}

// RecordError implements Sink.
func (s *PrometheusSink) RecordError(ctx context.Context, data *ErrorData) error {
	if data == nil {
		return ErrNilData
	}
	if err := s.checkOpen(ctx, data); err != nil {
		return err
	}

	s.errorsTotal.WithLabelValues(
		s.sanitizeLabel("bench", orUnknown(data.Bench)),
		s.sanitizeLabel("operation", orUnknown(data.Operation)),
		s.sanitizeLabel("error_type", orUnknown(data.ErrorType)),
	).Inc()
	return nil
}

// Flush is a no-op; Prometheus is pull-based.
func (s *PrometheusSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// Close unregisters the collectors when the registry supports it.
// Idempotent.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if reg, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			reg.Unregister(c)
		}
	}
	return nil
}

// sanitizeLabel maps label values beyond MaxLabelCardinality to "_other".
func (s *PrometheusSink) sanitizeLabel(labelName, labelValue string) string {
	s.labelMu.RLock()
	seen := s.seenLabels[labelName]
	if seen != nil {
		if _, exists := seen[labelValue]; exists {
			s.labelMu.RUnlock()
			return labelValue
		}
		if len(seen) >= s.maxCardinality {
			s.labelMu.RUnlock()
			return "_other"
		}
	}
	s.labelMu.RUnlock()

	s.labelMu.Lock()
	defer s.labelMu.Unlock()

	if s.seenLabels[labelName] == nil {
		s.seenLabels[labelName] = make(map[string]struct{})
	}
	if _, exists := s.seenLabels[labelName][labelValue]; exists {
		return labelValue
	}
	if len(s.seenLabels[labelName]) >= s.maxCardinality {
		return "_other"
	}
	s.seenLabels[labelName][labelValue] = struct{}{}
	return labelValue
}

// String describes the sink for logs.
func (s *PrometheusSink) String() string {
	return fmt.Sprintf("prometheus(%s_%s)", s.config.Namespace, s.config.Subsystem)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

var _ Sink = (*PrometheusSink)(nil)
