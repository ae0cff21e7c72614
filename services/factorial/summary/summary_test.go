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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/AleutianAI/factorbench/pkg/ux"
	"github.com/AleutianAI/factorbench/services/factorial/estimate"
	"github.com/AleutianAI/factorbench/services/factorial/treatment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/perf/benchfmt"
)

type width struct{ w int }

func (width) FactorNames() []string      { return []string{"width"} }
func (x width) FactorValues() []string   { return []string{strconv.Itoa(x.w)} }
func (width) ShortFactorNames() []string { return []string{"w"} }

type lenSort struct {
	len  int
	sort bool
}

func (lenSort) FactorNames() []string { return []string{"len", "sort"} }
func (s lenSort) FactorValues() []string {
	return []string{strconv.Itoa(s.len), strconv.FormatBool(s.sort)}
}
func (lenSort) ShortFactorNames() []string { return []string{"l", "s"} }
func (s lenSort) ShortFactorValues() []string {
	v := "F"
	if s.sort {
		v = "T"
	}
	return []string{strconv.Itoa(s.len), v}
}

func testGrid() *treatment.Grid {
	return treatment.NewGrid("rotate",
		[]width{{2}, {5}},
		[]lenSort{{1001, false}, {1001, true}},
	)
}

// writeEstimates stores slope estimates for the treatments with a value.
func writeEstimates(t *testing.T, root string, grid *treatment.Grid, values map[string]float64) {
	t.Helper()
	for _, tr := range grid.Treatments {
		v, ok := values[tr.LongKey]
		if !ok {
			continue
		}
		f := &estimate.File{Mean: estimate.Point(v+1000, 0), Slope: estimate.Point(v, 0)}
		require.NoError(t, estimate.Write(estimate.Path(root, grid.Bench, tr.ShortKey), f))
	}
}

func buildTestReport(t *testing.T) *Report {
	t.Helper()
	root := t.TempDir()
	grid := testGrid()
	writeEstimates(t, root, grid, map[string]float64{
		"width:2/len:1001_sort:false": 120,
		"width:2/len:1001_sort:true":  95,
		"width:5/len:1001_sort:true":  10.4,
	})
	r, err := Build(context.Background(), root, grid)
	require.NoError(t, err)
	return r
}

// -----------------------------------------------------------------------------
// Ranking
// -----------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		row  []Cell
		want []Rank
	}{
		{
			name: "ties and missing",
			row:  []Cell{Some(120), Some(95), None(), Some(95)},
			want: []Rank{RankWorst, RankBest, RankMissing, RankBest},
		},
		{
			name: "intermediate",
			row:  []Cell{Some(3), Some(1), Some(2)},
			want: []Rank{RankWorst, RankBest, RankIntermediate},
		},
		{
			name: "all equal are best",
			row:  []Cell{Some(7), Some(7)},
			want: []Rank{RankBest, RankBest},
		},
		{
			name: "single value is best",
			row:  []Cell{None(), Some(5)},
			want: []Rank{RankMissing, RankBest},
		},
		{
			name: "within tolerance",
			row:  []Cell{Some(1), Some(1 + 1e-12), Some(2)},
			want: []Rank{RankBest, RankBest, RankWorst},
		},
		{
			name: "all missing",
			row:  []Cell{None(), None()},
			want: []Rank{RankMissing, RankMissing},
		},
		{name: "empty", row: nil, want: []Rank{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.row, DefaultTolerance))
		})
	}
}

func TestRank_String(t *testing.T) {
	assert.Equal(t, "best", RankBest.String())
	assert.Equal(t, "worst", RankWorst.String())
	assert.Equal(t, "intermediate", RankIntermediate.String())
	assert.Equal(t, "missing", RankMissing.String())
}

func TestCell_Format(t *testing.T) {
	assert.Equal(t, "NA", None().Format())
	assert.Equal(t, "120", Some(120).Format())
	assert.Equal(t, "10", Some(10.4).Format())
	assert.Equal(t, "11", Some(10.6).Format())
}

// -----------------------------------------------------------------------------
// Matrix
// -----------------------------------------------------------------------------

func TestLoadMatrix(t *testing.T) {
	r := buildTestReport(t)
	m := r.Matrix

	require.Equal(t, 2, m.Rows())
	require.Equal(t, 2, m.Cols())
	assert.Equal(t, Some(120), m.At(0, 0))
	assert.Equal(t, Some(95), m.At(0, 1))
	assert.Equal(t, None(), m.At(1, 0))
	assert.Equal(t, Some(10.4), m.At(1, 1))

	row := m.Row(0)
	row[0] = None()
	assert.Equal(t, Some(120), m.At(0, 0), "Row returns a copy")
}

func TestLoadMatrix_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadMatrix(ctx, t.TempDir(), testGrid(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMatrix(t *testing.T) {
	m := NewMatrix([][]Cell{{Some(1), None()}, {Some(3), Some(4)}})
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 2, m.Cols())
	assert.Equal(t, Some(3), m.At(1, 0))
	assert.Equal(t, [][]Rank{{RankBest, RankMissing}, {RankBest, RankWorst}}, m.Ranks(0))
}

// -----------------------------------------------------------------------------
// Report
// -----------------------------------------------------------------------------

func TestReport_Rows(t *testing.T) {
	r := buildTestReport(t)
	rows := r.Rows()
	require.Len(t, rows, 4)

	assert.Equal(t, RankWorst, rows[0].Rank)
	assert.Equal(t, RankBest, rows[1].Rank)
	assert.Equal(t, RankMissing, rows[2].Rank)
	assert.Equal(t, RankBest, rows[3].Rank)

	assert.Equal(t, map[Rank]int{RankWorst: 1, RankBest: 2, RankMissing: 1}, r.Counts())
	assert.Equal(t, map[string]float64{
		"width:2/len:1001_sort:false": 120,
		"width:2/len:1001_sort:true":  95,
		"width:5/len:1001_sort:true":  10.4,
	}, r.Estimates())
}

func TestReport_WriteCSV(t *testing.T) {
	r := buildTestReport(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	want := strings.Join([]string{
		"t,i,a,width,len,sort,Time (ns)",
		"1,1,1,2,1001,false,120",
		"2,1,2,2,1001,true,95",
		"3,2,1,5,1001,false,NA",
		"4,2,2,5,1001,true,10",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestReport_CSVRoundTripsFactorValues(t *testing.T) {
	r := buildTestReport(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	table, err := ReadCSV(&buf)
	require.NoError(t, err)

	require.Len(t, table.Rows, len(r.Grid.Treatments))
	widthCol := table.Column("width")
	sortCol := table.Column("sort")
	require.NotEqual(t, -1, widthCol)
	require.NotEqual(t, -1, sortCol)
	assert.Equal(t, -1, table.Column("nope"))

	for idx, tr := range r.Grid.Treatments {
		assert.Equal(t, tr.InputValues[0], table.Rows[idx][widthCol])
		assert.Equal(t, tr.AlgValues[1], table.Rows[idx][sortCol])
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestReport_EmptyGrid(t *testing.T) {
	grid := treatment.NewGrid("empty", []width{}, []lenSort{{1, true}})
	r, err := Build(context.Background(), t.TempDir(), grid)
	require.NoError(t, err)

	assert.Empty(t, r.Rows())
	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	assert.Equal(t, "t,i,a,width,len,sort,Time (ns)\n", buf.String())
}

func TestReport_Prompt(t *testing.T) {
	r := buildTestReport(t)
	prompt := r.Prompt()

	assert.Contains(t, prompt, "2 input levels and 2 algorithm levels")
	assert.Contains(t, prompt, "4 treatments")
	assert.Contains(t, prompt, "Input factors (1): width")
	assert.Contains(t, prompt, "Algorithm factors (2): len, sort")
	assert.Contains(t, prompt, CSVPath(r.Root, "rotate"))
}

func TestReport_WriteBenchfmt(t *testing.T) {
	r := buildTestReport(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteBenchfmt(&buf))

	reader := benchfmt.NewReader(bytes.NewReader(buf.Bytes()), "results.txt")
	var names []string
	for reader.Scan() {
		if res, ok := reader.Result().(*benchfmt.Result); ok {
			names = append(names, string(res.Name))
		}
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, []string{
		"Rotate/width:2/len:1001_sort:false",
		"Rotate/width:2/len:1001_sort:true",
		"Rotate/width:5/len:1001_sort:true",
	}, names)
}

func TestBenchmarkName(t *testing.T) {
	assert.Equal(t, "Two_sum/k:a_b", BenchmarkName("two_sum", "k:a b"))
	assert.Equal(t, "X/k:1", BenchmarkName("x", "k:1"))
}

func TestReport_WriteArtifacts(t *testing.T) {
	r := buildTestReport(t)

	a, err := r.WriteArtifacts()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Root, "rotate", "summary_rotate.csv"), a.CSV)
	assert.Equal(t, filepath.Join(r.Root, "rotate", "prompt_rotate.md"), a.Prompt)

	for _, p := range a.Paths() {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestReport_WriteArtifactsFailureNamesPath(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0640))

	r := New(root, testGrid(), NewMatrix([][]Cell{{None(), None()}, {None(), None()}}), DefaultTolerance)
	_, err := r.WriteArtifacts()
	require.Error(t, err)

	var artifactErr *ArtifactError
	require.True(t, errors.As(err, &artifactErr))
	assert.Equal(t, CSVPath(root, "rotate"), artifactErr.Path)
	assert.Contains(t, err.Error(), CSVPath(root, "rotate"))
}

func TestReport_Table(t *testing.T) {
	r := buildTestReport(t)
	tbl := r.Table()

	assert.Equal(t, "Rank", tbl.Headers[len(tbl.Headers)-1])
	require.Len(t, tbl.Rows, 4)
	assert.Equal(t, []ux.Tone{ux.ToneBad, ux.ToneGood, ux.ToneMuted, ux.ToneGood}, tbl.Tones)
	assert.Equal(t, "worst", tbl.Rows[0][len(tbl.Rows[0])-1])

	out := r.Render(ux.ModePlain)
	assert.Contains(t, out, "Time (ns)")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "NA")
}
