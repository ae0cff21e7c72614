// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search benchmarks a parallel find over a slice of strings.
//
// The input factors are the slice length and where the needle sits. The
// algorithm factors are the number of goroutines and the scan direction
// within each goroutine's chunk. Both level types carry short forms, so
// harness ids look like "l:1024_p:M/n:4_d:B".
package search

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Name is the bench name.
const Name = "search"

// Needle is the value searched for. Every other element is "__<index>".
const Needle = "__rust"

// -----------------------------------------------------------------------------
// Factors
// -----------------------------------------------------------------------------

// Position places the needle in the input.
type Position int

const (
	// PositionMid puts the needle at len/2.
	PositionMid Position = iota

	// PositionNone leaves it out.
	PositionNone
)

// String returns the long level value.
func (p Position) String() string {
	if p == PositionNone {
		return "None"
	}
	return "Mid"
}

// Short returns the short level value.
func (p Position) Short() string {
	if p == PositionNone {
		return "N"
	}
	return "M"
}

// Index returns the needle index for a slice of length n, or -1.
func (p Position) Index(n int) int {
	if p == PositionNone || n == 0 {
		return -1
	}
	return n / 2
}

// Data is the input level.
type Data struct {
	Len      int
	Position Position
}

func (Data) FactorNames() []string      { return []string{"len", "position"} }
func (Data) ShortFactorNames() []string { return []string{"l", "p"} }

func (d Data) FactorValues() []string {
	return []string{strconv.Itoa(d.Len), d.Position.String()}
}

func (d Data) ShortFactorValues() []string {
	return []string{strconv.Itoa(d.Len), d.Position.Short()}
}

// Direction is the scan order within a chunk.
type Direction int

const (
	Forwards Direction = iota
	Backwards
)

// String returns "Forwards" or "Backwards".
func (d Direction) String() string {
	if d == Backwards {
		return "Backwards"
	}
	return "Forwards"
}

// Short returns "F" or "B".
func (d Direction) Short() string {
	if d == Backwards {
		return "B"
	}
	return "F"
}

// Params is the algorithm level.
type Params struct {
	NumThreads int
	Direction  Direction
}

func (Params) FactorNames() []string      { return []string{"num_threads", "direction"} }
func (Params) ShortFactorNames() []string { return []string{"n", "d"} }

func (p Params) FactorValues() []string {
	return []string{strconv.Itoa(p.NumThreads), p.Direction.String()}
}

func (p Params) ShortFactorValues() []string {
	return []string{strconv.Itoa(p.NumThreads), p.Direction.Short()}
}

// DefaultData returns the default input levels.
func DefaultData() []Data {
	return []Data{
		{Len: 1 << 10, Position: PositionMid},
		{Len: 1 << 10, Position: PositionNone},
		{Len: 1 << 16, Position: PositionMid},
		{Len: 1 << 16, Position: PositionNone},
	}
}

// DefaultParams returns one and four goroutines in both directions.
func DefaultParams() []Params {
	var out []Params
	for _, n := range []int{1, 4} {
		for _, d := range []Direction{Forwards, Backwards} {
			out = append(out, Params{NumThreads: n, Direction: d})
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Experiment
// -----------------------------------------------------------------------------

// Result is the output of a search.
type Result struct {
	Index int
	Found bool
}

// Experiment is the parallel search experiment.
type Experiment struct{}

// BuildInput builds the haystack.
func (Experiment) BuildInput(d Data) []string {
	at := d.Position.Index(d.Len)
	out := make([]string, d.Len)
	for i := range out {
		if i == at {
			out[i] = Needle
			continue
		}
		out[i] = "__" + strconv.Itoa(i)
	}
	return out
}

// Execute searches input with p.NumThreads goroutines, each scanning one
// contiguous chunk in p.Direction. Goroutines stop early once any of them
// has found the needle.
func (Experiment) Execute(p Params, input []string) Result {
	n := p.NumThreads
	if n < 1 {
		n = 1
	}
	if n == 1 {
		i := scan(input, 0, len(input), p.Direction, nil)
		return Result{Index: i, Found: i >= 0}
	}

	var (
		found atomic.Int64
		done  atomic.Bool
		g     errgroup.Group
	)
	found.Store(-1)
	chunk := (len(input) + n - 1) / n
	for lo := 0; lo < len(input); lo += chunk {
		hi := min(lo+chunk, len(input))
		g.Go(func() error {
			if i := scan(input, lo, hi, p.Direction, &done); i >= 0 {
				found.Store(int64(i))
				done.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	i := int(found.Load())
	return Result{Index: i, Found: i >= 0}
}

// ExpectedOutput implements experiment.ExpectedOutputter.
func (Experiment) ExpectedOutput(d Data, _ []string) (Result, bool) {
	i := d.Position.Index(d.Len)
	return Result{Index: i, Found: i >= 0}, true
}

// ValidateOutput implements experiment.OutputValidator.
func (Experiment) ValidateOutput(_ Data, input []string, out Result) error {
	if !out.Found {
		return nil
	}
	if out.Index < 0 || out.Index >= len(input) {
		return fmt.Errorf("index %d out of range [0, %d)", out.Index, len(input))
	}
	if input[out.Index] != Needle {
		return fmt.Errorf("element %d is %q, not %q", out.Index, input[out.Index], Needle)
	}
	return nil
}

// scan returns the index of Needle in input[lo:hi] or -1. A non-nil stop
// is polled so other goroutines can end the scan early.
func scan(input []string, lo, hi int, dir Direction, stop *atomic.Bool) int {
	step, i, end := 1, lo, hi
	if dir == Backwards {
		step, i, end = -1, hi-1, lo-1
	}
	for ; i != end; i += step {
		if stop != nil && i%1024 == 0 && stop.Load() {
			return -1
		}
		if input[i][2:] == Needle[2:] {
			return i
		}
	}
	return -1
}
