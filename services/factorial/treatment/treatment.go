// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package treatment enumerates the full factorial grid of an experiment.
//
// A treatment is one (input level, algorithm level) pair. With I input
// levels and A algorithm levels the grid has I*A treatments visited with
// the input level in the outer loop:
//
//	t = i*A + a        (0-based internally, 1-based when shown)
//
// Each treatment is identified by joining the input key and the algorithm
// key with "/", in long form for reports and short form for harness ids.
package treatment

import (
	"github.com/AleutianAI/factorbench/services/factorial/factors"
)

// KeySeparator joins the input key to the algorithm key.
const KeySeparator = "/"

// Key returns the treatment key of an input level and an algorithm level.
//
// Example:
//
//	treatment.Key(width{2}, lenSort{1001, false}, factors.Long)
//	// "width:2/len:1001_sort:false"
func Key(input, alg factors.Levels, f factors.Form) string {
	return factors.Key(input, f) + KeySeparator + factors.Key(alg, f)
}

// Treatment identifies one cell of the grid.
type Treatment struct {
	// Index is the 0-based flat index i*A + a.
	Index int

	// InputIndex is the 0-based input level index.
	InputIndex int

	// AlgIndex is the 0-based algorithm level index.
	AlgIndex int

	// LongKey is "{input long key}/{algorithm long key}".
	LongKey string

	// ShortKey is "{input short key}/{algorithm short key}".
	ShortKey string

	// InputValues are the long factor values of the input level.
	InputValues []string

	// AlgValues are the long factor values of the algorithm level.
	AlgValues []string
}

// T returns the 1-based flat index.
func (t Treatment) T() int { return t.Index + 1 }

// I returns the 1-based input level index.
func (t Treatment) I() int { return t.InputIndex + 1 }

// A returns the 1-based algorithm level index.
func (t Treatment) A() int { return t.AlgIndex + 1 }

// Grid is the enumerated factorial grid of one bench.
type Grid struct {
	// Bench is the bench name.
	Bench string

	// InputNames are the long input factor names.
	InputNames []string

	// AlgNames are the long algorithm factor names.
	AlgNames []string

	// NumInputs is the number of input levels.
	NumInputs int

	// NumAlgs is the number of algorithm levels.
	NumAlgs int

	// Treatments lists all treatments in execution order.
	Treatments []Treatment
}

// NewGrid enumerates the grid of inputs x algs.
//
// Description:
//
//	Treatments are produced input-major, in the order the levels are
//	supplied. Empty inputs or algs produce a grid with no treatments; the
//	factor names still come from the level types (see factors.Header), and
//	are nil for a pointer level type whose nil value cannot report them.
//
//	Keys are assumed unique within inputs and within algs. Duplicates are
//	not detected here (see factors.DuplicateKeys).
//
// Inputs:
//
//	bench  - Bench name.
//	inputs - Input levels, outer loop.
//	algs   - Algorithm levels, inner loop.
//
// Outputs:
//
//	*Grid - The enumerated grid. Never nil.
func NewGrid[I, A factors.Levels](bench string, inputs []I, algs []A) *Grid {
	g := &Grid{
		Bench:      bench,
		InputNames: factors.Header(inputs),
		AlgNames:   factors.Header(algs),
		NumInputs:  len(inputs),
		NumAlgs:    len(algs),
		Treatments: make([]Treatment, 0, len(inputs)*len(algs)),
	}

	for i, in := range inputs {
		inLong, inShort := factors.LongKey(in), factors.ShortKey(in)
		inValues := in.FactorValues()
		for a, alg := range algs {
			g.Treatments = append(g.Treatments, Treatment{
				Index:       i*len(algs) + a,
				InputIndex:  i,
				AlgIndex:    a,
				LongKey:     inLong + KeySeparator + factors.LongKey(alg),
				ShortKey:    inShort + KeySeparator + factors.ShortKey(alg),
				InputValues: inValues,
				AlgValues:   alg.FactorValues(),
			})
		}
	}
	return g
}

// Len returns the number of treatments.
func (g *Grid) Len() int {
	return len(g.Treatments)
}

// At returns the treatment of input level i and algorithm level a, both
// 0-based.
func (g *Grid) At(i, a int) Treatment {
	return g.Treatments[i*g.NumAlgs+a]
}
