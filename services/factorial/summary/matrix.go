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
	"context"
	"runtime"

	"github.com/AleutianAI/factorbench/services/factorial/estimate"
	"github.com/AleutianAI/factorbench/services/factorial/treatment"
	"golang.org/x/sync/errgroup"
)

// Matrix is the I x A table of estimates, 0-based. It is not modified
// after LoadMatrix or NewMatrix returns.
type Matrix struct {
	rows  int
	cols  int
	cells []Cell
}

// NewMatrix builds a matrix from explicit rows. All rows must have the
// same length.
func NewMatrix(rows [][]Cell) *Matrix {
	m := &Matrix{rows: len(rows)}
	if len(rows) > 0 {
		m.cols = len(rows[0])
	}
	m.cells = make([]Cell, 0, m.rows*m.cols)
	for _, r := range rows {
		m.cells = append(m.cells, r[:m.cols]...)
	}
	return m
}

// Rows returns the number of input levels.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of algorithm levels.
func (m *Matrix) Cols() int { return m.cols }

// At returns the estimate of input level i and algorithm level a.
func (m *Matrix) At(i, a int) Cell {
	return m.cells[i*m.cols+a]
}

// Row returns a copy of the estimates of input level i.
func (m *Matrix) Row(i int) []Cell {
	out := make([]Cell, m.cols)
	copy(out, m.cells[i*m.cols:(i+1)*m.cols])
	return out
}

// Ranks classifies every row with the given tolerance.
func (m *Matrix) Ranks(tol float64) [][]Rank {
	out := make([][]Rank, m.rows)
	for i := range out {
		out[i] = Classify(m.Row(i), tol)
	}
	return out
}

// LoadMatrix reads the estimate of every treatment of a grid.
//
// Description:
//
//	Statistics files are read concurrently by at most workers goroutines
//	(GOMAXPROCS when workers <= 0). Each result is stored at its own index
//	so the matrix layout does not depend on completion order. Missing and
//	malformed files become absent cells.
//
// Inputs:
//
//	ctx     - Cancels loading between files.
//	root    - Artifact root.
//	grid    - The enumerated grid.
//	workers - Read concurrency.
//
// Outputs:
//
//	*Matrix - NumInputs x NumAlgs estimates.
//	error   - Non-nil only if ctx was cancelled.
func LoadMatrix(ctx context.Context, root string, grid *treatment.Grid, workers int) (*Matrix, error) {
	m := &Matrix{
		rows:  grid.NumInputs,
		cols:  grid.NumAlgs,
		cells: make([]Cell, grid.NumInputs*grid.NumAlgs),
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, tr := range grid.Treatments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if v, ok := estimate.Extract(root, grid.Bench, tr.ShortKey); ok {
				m.cells[tr.Index] = Some(v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}
