// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package experiment runs factorial benchmark experiments.
//
// An Experiment builds an input from each input level and executes each
// algorithm level against it. Bench crosses every input level with every
// algorithm level, drives a harness once per treatment, checks the output
// of the first call, and builds the ranked summary once the harness group
// has finished.
//
// Input and algorithm levels must produce distinct keys within a run. The
// runner does not check this; factors.DuplicateKeys reports offenders.
package experiment

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/factorbench/services/factorial/factors"
)

// Experiment is a benchmark over input levels I and algorithm levels A.
//
// BuildInput is called once per input level and is not timed. Execute is
// the timed operation; it is called many times per treatment and must not
// mutate input.
type Experiment[I, A factors.Levels, In, Out any] interface {
	BuildInput(level I) In
	Execute(alg A, input In) Out
}

// ExpectedOutputter is implemented by experiments that know the correct
// output for an input level. When ok is true, the first Execute result of
// every treatment of that level must equal want.
//
// Outputs are compared with cmp.Equal, so Out must not hold unexported
// struct fields.
type ExpectedOutputter[I, In, Out any] interface {
	ExpectedOutput(level I, input In) (want Out, ok bool)
}

// OutputValidator is implemented by experiments with checks that do not
// reduce to equality, such as "the found pair sums to the target". It runs
// once per treatment and is not timed.
type OutputValidator[I, In, Out any] interface {
	ValidateOutput(level I, input In, output Out) error
}

var (
	// ErrOutputMismatch indicates a treatment's output differs from the
	// expected output.
	ErrOutputMismatch = errors.New("output does not match expected output")

	// ErrValidationFailed indicates ValidateOutput rejected an output.
	ErrValidationFailed = errors.New("output validation failed")

	// ErrNilHarness indicates a runner without a harness.
	ErrNilHarness = errors.New("harness must not be nil")
)

// CorrectnessError aborts a run when a treatment produces a wrong output.
type CorrectnessError struct {
	// Bench is the bench name.
	Bench string

	// Key is the long treatment key.
	Key string

	// T is the 1-based treatment index.
	T int

	// Diff is the cmp.Diff of want and got for mismatches.
	Diff string

	// Err is ErrOutputMismatch or wraps ErrValidationFailed.
	Err error
}

func (e *CorrectnessError) Error() string {
	msg := fmt.Sprintf("%s treatment %d (%s): %v", e.Bench, e.T, e.Key, e.Err)
	if e.Diff != "" {
		msg += "\n(-want +got):\n" + e.Diff
	}
	return msg
}

func (e *CorrectnessError) Unwrap() error {
	return e.Err
}
