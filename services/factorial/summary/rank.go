// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package summary

import (
	"math"
	"strconv"
)

// DefaultTolerance is the absolute tolerance, in nanoseconds, used when
// matching an estimate against its row's minimum and maximum.
const DefaultTolerance = 1e-9

// Cell is one optional estimate of the matrix.
type Cell struct {
	// Ns is the estimate in nanoseconds. Meaningful only when Valid.
	Ns float64

	// Valid is false when the statistics file was missing or unusable.
	Valid bool
}

// Some returns a valid cell.
func Some(ns float64) Cell {
	return Cell{Ns: ns, Valid: true}
}

// None returns an absent cell.
func None() Cell {
	return Cell{}
}

// Format returns the estimate with zero decimal places, or "NA".
func (c Cell) Format() string {
	if !c.Valid {
		return "NA"
	}
	return strconv.FormatFloat(c.Ns, 'f', 0, 64)
}

// Rank classifies one estimate within its input group.
type Rank int

const (
	// RankMissing marks an absent estimate.
	RankMissing Rank = iota

	// RankBest marks an estimate equal to the row minimum.
	RankBest

	// RankIntermediate marks an estimate strictly between minimum and maximum.
	RankIntermediate

	// RankWorst marks an estimate equal to the row maximum.
	RankWorst
)

// String returns "best", "intermediate", "worst" or "missing".
func (r Rank) String() string {
	switch r {
	case RankBest:
		return "best"
	case RankIntermediate:
		return "intermediate"
	case RankWorst:
		return "worst"
	default:
		return "missing"
	}
}

// Classify ranks the cells of one row.
//
// Description:
//
//	The minimum and maximum are taken over the valid cells. A valid cell
//	within tol of the minimum is Best. Otherwise a cell within tol of the
//	maximum is Worst. Everything else valid is Intermediate. When the
//	minimum equals the maximum every valid cell is Best. Invalid cells are
//	Missing.
//
// Inputs:
//
//	row - Estimates of one input level, one per algorithm level.
//	tol - Absolute tolerance. Negative values are treated as zero.
//
// Outputs:
//
//	[]Rank - One rank per cell, same order as row.
//
// Example:
//
//	Classify([]Cell{Some(120), Some(95), None(), Some(95)}, DefaultTolerance)
//	// [worst best missing best]
func Classify(row []Cell, tol float64) []Rank {
	tol = math.Max(tol, 0)
	ranks := make([]Rank, len(row))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range row {
		if c.Valid {
			lo = math.Min(lo, c.Ns)
			hi = math.Max(hi, c.Ns)
		}
	}

	for i, c := range row {
		switch {
		case !c.Valid:
			ranks[i] = RankMissing
		case math.Abs(c.Ns-lo) <= tol:
			ranks[i] = RankBest
		case math.Abs(c.Ns-hi) <= tol:
			ranks[i] = RankWorst
		default:
			ranks[i] = RankIntermediate
		}
	}
	return ranks
}
