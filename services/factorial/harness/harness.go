// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harness defines the timing harness the factorial runner drives
// and ships two implementations of it.
//
// A harness groups repeated calls under a bench name, times a closure many
// times per treatment id, and persists one statistics file per id under the
// layout read by package estimate. The runner depends only on the Harness
// and Group interfaces.
//
//   - Local: an in-process timer with warm-up, linear or flat sampling and
//     slope/mean estimation.
//   - Testing: an adapter over *testing.B for use inside Go benchmarks.
package harness

import (
	"context"
	"errors"
)

// Op is one timed call. The returned value is kept alive so the call is
// not optimized away; a non-nil error aborts the treatment.
type Op func() (any, error)

// Harness opens named benchmark groups.
type Harness interface {
	// Group starts a group of treatments named after the bench.
	Group(ctx context.Context, name string) (Group, error)
}

// Group times the treatments of one bench.
//
// Bench must be called once per treatment id. Statistics files are complete
// when Finish returns.
type Group interface {
	// Bench times op under the treatment id. The first error returned by
	// op stops the timing and is returned unchanged, wrapped with the id.
	Bench(ctx context.Context, id string, op Op) error

	// Finish closes the group. Bench fails after Finish.
	Finish(ctx context.Context) error
}

var (
	// ErrGroupFinished indicates Bench was called on a finished group.
	ErrGroupFinished = errors.New("benchmark group already finished")

	// ErrInvalidConfig indicates the harness configuration is invalid.
	ErrInvalidConfig = errors.New("invalid harness configuration")

	// ErrEmptyName indicates an empty group name or treatment id.
	ErrEmptyName = errors.New("name must not be empty")
)
