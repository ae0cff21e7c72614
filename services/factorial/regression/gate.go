// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package regression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Verdict is the outcome of Gate.Check.
type Verdict struct {
	// Comparison is nil when the baseline was just created.
	Comparison *Comparison

	// BaselineCreated is true when the bench had no baseline.
	BaselineCreated bool

	// BaselineUpdated is true when a passing run replaced the baseline.
	BaselineUpdated bool

	// Passed is false when any treatment regressed.
	Passed bool
}

// Gate records runs and checks them against the bench baseline.
type Gate struct {
	store        Store
	detector     *Detector
	updateOnPass bool
	logger       *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithUpdateOnPass makes passing runs the new baseline.
func WithUpdateOnPass(update bool) GateOption {
	return func(g *Gate) { g.updateOnPass = update }
}

// WithGateLogger sets the logger. Nil values are ignored.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a gate over store and detector.
func NewGate(store Store, detector *Detector, opts ...GateOption) (*Gate, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if detector == nil {
		return nil, errors.New("detector must not be nil")
	}
	g := &Gate{store: store, detector: detector, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Check stores the snapshot in the history and compares it against the
// baseline.
//
// Description:
//
//	The first run of a bench becomes its baseline and passes. Later runs
//	fail when any treatment regressed by more than the detector
//	threshold; with WithUpdateOnPass, a passing run replaces the baseline.
//
// Outputs:
//
//	*Verdict - The verdict. Nil on error.
//	error    - Store failures or an invalid snapshot.
func (g *Gate) Check(ctx context.Context, s *Snapshot) (*Verdict, error) {
	if err := g.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("record snapshot: %w", err)
	}

	baseline, err := g.store.Baseline(ctx, s.Bench)
	if errors.Is(err, ErrNotFound) {
		if err := g.store.SetBaseline(ctx, s); err != nil {
			return nil, fmt.Errorf("create baseline: %w", err)
		}
		g.logger.Info("baseline created", "bench", s.Bench, "run_id", s.ID)
		return &Verdict{BaselineCreated: true, Passed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	cmp := g.detector.Compare(baseline, s)
	v := &Verdict{Comparison: cmp, Passed: !cmp.HasRegressions()}

	counts := cmp.Counts()
	g.logger.Info("compared against baseline",
		"bench", s.Bench,
		"baseline_id", baseline.ID,
		"regressed", counts[StatusRegressed],
		"improved", counts[StatusImproved],
		"passed", v.Passed,
	)

	if v.Passed && g.updateOnPass {
		if err := g.store.SetBaseline(ctx, s); err != nil {
			return nil, fmt.Errorf("update baseline: %w", err)
		}
		v.BaselineUpdated = true
	}
	return v, nil
}
