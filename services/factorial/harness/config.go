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
	"fmt"
	"strings"
	"time"
)

// Sampling selects how iterations are distributed over samples.
type Sampling string

const (
	// SamplingLinear runs k*d iterations in sample k and estimates the
	// per-iteration time as the slope of a fit through the origin.
	SamplingLinear Sampling = "linear"

	// SamplingFlat runs d iterations in every sample. No slope is
	// estimated and the statistics file carries a null slope.
	SamplingFlat Sampling = "flat"
)

// ParseSampling converts a case-insensitive name to a Sampling mode.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(strings.ToLower(strings.TrimSpace(s))) {
	case "", SamplingLinear:
		return SamplingLinear, nil
	case SamplingFlat:
		return SamplingFlat, nil
	default:
		return "", fmt.Errorf("%w: unknown sampling mode %q", ErrInvalidConfig, s)
	}
}

// Config configures the Local harness.
type Config struct {
	// Root is the artifact root; statistics go to {Root}/{bench}/...
	Root string

	// WarmUpTime is how long the op is called before measurement.
	// At least one call is always made.
	WarmUpTime time.Duration

	// MeasurementTime is the target total time of all samples.
	MeasurementTime time.Duration

	// Samples is the number of timed samples per treatment. Minimum 2.
	Samples int

	// Sampling is the iteration distribution over samples.
	Sampling Sampling

	// MaxIterations caps the iterations of a single sample. Zero means no cap.
	MaxIterations int64
}

// DefaultConfig returns the defaults: 1s warm-up, 3s measurement,
// 50 linear samples, artifacts under target/factorbench.
func DefaultConfig() Config {
	return Config{
		Root:            "target/factorbench",
		WarmUpTime:      time.Second,
		MeasurementTime: 3 * time.Second,
		Samples:         50,
		Sampling:        SamplingLinear,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root must not be empty", ErrInvalidConfig)
	}
	if c.WarmUpTime < 0 {
		return fmt.Errorf("%w: warm-up time must be non-negative", ErrInvalidConfig)
	}
	if c.MeasurementTime <= 0 {
		return fmt.Errorf("%w: measurement time must be positive", ErrInvalidConfig)
	}
	if c.Samples < 2 {
		return fmt.Errorf("%w: samples must be at least 2, got %d", ErrInvalidConfig, c.Samples)
	}
	if c.Sampling != SamplingLinear && c.Sampling != SamplingFlat {
		return fmt.Errorf("%w: unknown sampling mode %q", ErrInvalidConfig, c.Sampling)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Option configures a Local harness. Options apply in order.
type Option func(*Config)

// WithRoot sets the artifact root. Empty values are ignored.
func WithRoot(root string) Option {
	return func(c *Config) {
		if root != "" {
			c.Root = root
		}
	}
}

// WithWarmUpTime sets the warm-up duration. Negative values are ignored.
func WithWarmUpTime(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.WarmUpTime = d
		}
	}
}

// WithMeasurementTime sets the target measurement duration.
// Non-positive values are ignored.
func WithMeasurementTime(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MeasurementTime = d
		}
	}
}

// WithSamples sets the number of samples. Values below 2 are ignored.
func WithSamples(n int) Option {
	return func(c *Config) {
		if n >= 2 {
			c.Samples = n
		}
	}
}

// WithSampling sets the sampling mode.
func WithSampling(s Sampling) Option {
	return func(c *Config) {
		c.Sampling = s
	}
}

// WithMaxIterations caps the iterations of one sample.
func WithMaxIterations(n int64) Option {
	return func(c *Config) {
		c.MaxIterations = n
	}
}
