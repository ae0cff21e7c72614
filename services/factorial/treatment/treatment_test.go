// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package treatment

import (
	"strconv"
	"testing"

	"github.com/AleutianAI/factorbench/services/factorial/factors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestKey(t *testing.T) {
	assert.Equal(t, "width:2/len:1001_sort:false", Key(width{2}, lenSort{1001, false}, factors.Long))
	assert.Equal(t, "w:2/l:1001_s:F", Key(width{2}, lenSort{1001, false}, factors.Short))
}

func TestNewGrid(t *testing.T) {
	inputs := []width{{2}, {5}}
	algs := []lenSort{{1001, false}, {1001, true}}

	g := NewGrid("rotate", inputs, algs)
	require.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"width"}, g.InputNames)
	assert.Equal(t, []string{"len", "sort"}, g.AlgNames)

	wantLong := []string{
		"width:2/len:1001_sort:false",
		"width:2/len:1001_sort:true",
		"width:5/len:1001_sort:false",
		"width:5/len:1001_sort:true",
	}
	wantShort := []string{
		"w:2/l:1001_s:F",
		"w:2/l:1001_s:T",
		"w:5/l:1001_s:F",
		"w:5/l:1001_s:T",
	}
	for idx, tr := range g.Treatments {
		assert.Equal(t, idx, tr.Index)
		assert.Equal(t, idx+1, tr.T())
		assert.Equal(t, wantLong[idx], tr.LongKey)
		assert.Equal(t, wantShort[idx], tr.ShortKey)
		assert.Equal(t, tr.InputIndex*2+tr.AlgIndex, tr.Index)
	}

	tr := g.At(1, 0)
	assert.Equal(t, 2, tr.I())
	assert.Equal(t, 1, tr.A())
	assert.Equal(t, []string{"5"}, tr.InputValues)
	assert.Equal(t, []string{"1001", "false"}, tr.AlgValues)
}

func TestNewGrid_Empty(t *testing.T) {
	g := NewGrid("empty", []width{}, []lenSort{{1, true}})
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, []string{"width"}, g.InputNames)
	assert.Equal(t, []string{"len", "sort"}, g.AlgNames)

	g = NewGrid("empty", []width{{1}}, []lenSort(nil))
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 1, g.NumInputs)
	assert.Equal(t, 0, g.NumAlgs)
}

// cfg has pointer receivers that read through the receiver.
type cfg struct{ names []string }

func (c *cfg) FactorNames() []string  { return c.names }
func (c *cfg) FactorValues() []string { return make([]string, len(c.names)) }

func TestNewGrid_EmptyPointerLevels(t *testing.T) {
	var g *Grid
	require.NotPanics(t, func() {
		g = NewGrid("empty", []*cfg{}, []lenSort{{1, true}})
	})
	assert.Equal(t, 0, g.Len())
	assert.Nil(t, g.InputNames)
	assert.Equal(t, []string{"len", "sort"}, g.AlgNames)
}

func TestNewGrid_CountAndOrder(t *testing.T) {
	var inputs []width
	for w := 1; w <= 3; w++ {
		inputs = append(inputs, width{w})
	}
	var algs []lenSort
	for l := 1; l <= 4; l++ {
		algs = append(algs, lenSort{l, l%2 == 0})
	}

	g := NewGrid("count", inputs, algs)
	require.Equal(t, 12, g.Len())

	seen := map[string]bool{}
	for idx, tr := range g.Treatments {
		assert.Equal(t, idx, tr.Index, "flat index increases by one")
		assert.False(t, seen[tr.LongKey], "duplicate key %s", tr.LongKey)
		seen[tr.LongKey] = true
	}
}
