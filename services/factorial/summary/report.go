// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package summary turns the statistics of a finished factorial run into a
// ranked report.
//
// The report is built from the enumerated grid and the estimate matrix.
// Within each input level (one matrix row) every algorithm level is ranked
// Best, Worst, Intermediate or Missing. The report is emitted as:
//
//   - a CSV table at {root}/{bench}/summary_{bench}.csv
//   - an analysis prompt at {root}/{bench}/prompt_{bench}.md
//   - Go benchmark format results at {root}/{bench}/results_{bench}.txt
//   - a ranked console table
package summary

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/AleutianAI/factorbench/services/factorial/treatment"
)

// TimeColumn is the header of the estimate column.
const TimeColumn = "Time (ns)"

// BenchDir returns the directory holding all artifacts of a bench.
func BenchDir(root, bench string) string {
	return filepath.Join(root, bench)
}

// CSVPath returns the summary CSV path of a bench.
func CSVPath(root, bench string) string {
	return filepath.Join(root, bench, fmt.Sprintf("summary_%s.csv", bench))
}

// PromptPath returns the analysis prompt path of a bench.
func PromptPath(root, bench string) string {
	return filepath.Join(root, bench, fmt.Sprintf("prompt_%s.md", bench))
}

// BenchfmtPath returns the Go benchmark format results path of a bench.
func BenchfmtPath(root, bench string) string {
	return filepath.Join(root, bench, fmt.Sprintf("results_%s.txt", bench))
}

// Report is the ranked summary of one bench.
type Report struct {
	// Root is the artifact root the report was built from.
	Root string

	// Grid is the enumerated grid.
	Grid *treatment.Grid

	// Matrix holds one estimate per treatment.
	Matrix *Matrix

	// Ranks holds one rank per treatment, indexed like Matrix.
	Ranks [][]Rank
}

// Row is one treatment of the report.
type Row struct {
	treatment.Treatment
	Estimate Cell
	Rank     Rank
}

// New assembles a report from a grid and its matrix, ranking every row
// with tolerance tol.
func New(root string, grid *treatment.Grid, m *Matrix, tol float64) *Report {
	return &Report{
		Root:   root,
		Grid:   grid,
		Matrix: m,
		Ranks:  m.Ranks(tol),
	}
}

// Build loads the matrix of grid from root and assembles the report with
// DefaultTolerance.
//
// Outputs:
//
//	*Report - The report. Missing statistics become NA cells.
//	error   - Non-nil only if ctx was cancelled while loading.
func Build(ctx context.Context, root string, grid *treatment.Grid) (*Report, error) {
	m, err := LoadMatrix(ctx, root, grid, 0)
	if err != nil {
		return nil, fmt.Errorf("load estimates: %w", err)
	}
	return New(root, grid, m, DefaultTolerance), nil
}

// Bench returns the bench name.
func (r *Report) Bench() string {
	return r.Grid.Bench
}

// Rows returns the report rows in execution order.
func (r *Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Grid.Treatments))
	for _, tr := range r.Grid.Treatments {
		rows = append(rows, Row{
			Treatment: tr,
			Estimate:  r.Matrix.At(tr.InputIndex, tr.AlgIndex),
			Rank:      r.Ranks[tr.InputIndex][tr.AlgIndex],
		})
	}
	return rows
}

// Header returns the table header:
// t, i, a, input factor names, algorithm factor names, "Time (ns)".
func (r *Report) Header() []string {
	h := make([]string, 0, 4+len(r.Grid.InputNames)+len(r.Grid.AlgNames))
	h = append(h, "t", "i", "a")
	h = append(h, r.Grid.InputNames...)
	h = append(h, r.Grid.AlgNames...)
	return append(h, TimeColumn)
}

// Record returns the table cells of a row, matching Header.
func (r *Report) Record(row Row) []string {
	rec := make([]string, 0, 4+len(row.InputValues)+len(row.AlgValues))
	rec = append(rec,
		strconv.Itoa(row.T()),
		strconv.Itoa(row.I()),
		strconv.Itoa(row.A()),
	)
	rec = append(rec, row.InputValues...)
	rec = append(rec, row.AlgValues...)
	return append(rec, row.Estimate.Format())
}

// Counts returns the number of treatments per rank.
func (r *Report) Counts() map[Rank]int {
	counts := make(map[Rank]int, 4)
	for _, row := range r.Ranks {
		for _, rank := range row {
			counts[rank]++
		}
	}
	return counts
}

// Estimates returns the valid estimates keyed by long treatment key.
func (r *Report) Estimates() map[string]float64 {
	out := make(map[string]float64, len(r.Grid.Treatments))
	for _, row := range r.Rows() {
		if row.Estimate.Valid {
			out[row.LongKey] = row.Estimate.Ns
		}
	}
	return out
}
