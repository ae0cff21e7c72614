// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package twosum benchmarks lookup structures on the two-sum problem: find
// two positions of an array whose values add up to a target.
//
// The input factor is the array length. The algorithm factor is the
// structure used to look up complements: a linear scan, a sorted slice of
// pairs, a hash map, or a sorted map.
package twosum

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
)

// Target is the sum searched for. Generated values other than the planted
// pair are at least 3, so the planted pair is the only solution.
const Target = 3

// Name is the bench name.
const Name = "two_sum"

// Seed seeds input generation so every run sees the same arrays.
var Seed = [32]byte{42}

// ErrWrongSum is returned by ValidateOutput when the found values do not
// add up to Target.
var ErrWrongSum = errors.New("values do not sum to target")

// -----------------------------------------------------------------------------
// Factors
// -----------------------------------------------------------------------------

// Data is the input level: the array length.
type Data struct {
	Len int
}

// FactorNames implements factors.Levels.
func (Data) FactorNames() []string { return []string{"len"} }

// FactorValues implements factors.Levels.
func (d Data) FactorValues() []string { return []string{strconv.Itoa(d.Len)} }

// StoreType selects the complement lookup structure.
type StoreType int

const (
	// StoreNone scans the array for every complement.
	StoreNone StoreType = iota

	// StoreSortedVec binary searches a sorted slice of value/index pairs.
	StoreSortedVec

	// StoreHashMap looks complements up in a Go map.
	StoreHashMap

	// StoreSortedMap binary searches sorted keys held apart from their
	// indices.
	StoreSortedMap
)

// String returns the level value of the store type.
func (s StoreType) String() string {
	switch s {
	case StoreNone:
		return "None"
	case StoreSortedVec:
		return "SortedVec"
	case StoreHashMap:
		return "HashMap"
	case StoreSortedMap:
		return "SortedMap"
	default:
		return "StoreType(" + strconv.Itoa(int(s)) + ")"
	}
}

// Method is the algorithm level.
type Method struct {
	Store StoreType
}

// FactorNames implements factors.Levels.
func (Method) FactorNames() []string { return []string{"store-type"} }

// FactorValues implements factors.Levels.
func (m Method) FactorValues() []string { return []string{m.Store.String()} }

// DefaultData returns the default input levels.
func DefaultData() []Data {
	return []Data{{Len: 1 << 5}, {Len: 1 << 10}, {Len: 1 << 15}}
}

// DefaultMethods returns every store type.
func DefaultMethods() []Method {
	return []Method{
		{Store: StoreNone},
		{Store: StoreSortedVec},
		{Store: StoreHashMap},
		{Store: StoreSortedMap},
	}
}

// -----------------------------------------------------------------------------
// Experiment
// -----------------------------------------------------------------------------

// Input is the array with the positions of the planted pair.
type Input struct {
	Array []int64
	Pair  Pair
}

// Pair is the output: two positions whose values sum to Target. Found is
// false when no pair exists.
type Pair struct {
	I, J  int
	Found bool
}

// Experiment is the two-sum experiment.
type Experiment struct{}

// BuildInput generates a seeded random array of length d.Len with values
// in [3, Len) and plants 1 and 2 at two distinct positions chosen from the
// array itself.
func (Experiment) BuildInput(d Data) Input {
	n := d.Len
	if n < 4 {
		n = 4
	}
	rng := rand.New(rand.NewChaCha8(Seed))
	array := make([]int64, n)
	for k := range array {
		array[k] = 3 + rng.Int64N(int64(n-3))
	}

	i := int(array[n/2])
	j := int(array[3*n/4])
	if i == j {
		j = (i + 1) % n
	}
	array[i] = 1
	array[j] = 2

	if j < i {
		i, j = j, i
	}
	return Input{Array: array, Pair: Pair{I: i, J: j, Found: true}}
}

// Execute finds the first position whose complement is present.
func (Experiment) Execute(m Method, in Input) Pair {
	var s store
	switch m.Store {
	case StoreSortedVec:
		s = newSortedVec(in.Array)
	case StoreHashMap:
		s = newHashStore(in.Array)
	case StoreSortedMap:
		s = newSortedMap(in.Array)
	default:
		s = scanStore(in.Array)
	}
	return solve(in.Array, Target, s)
}

// ExpectedOutput implements experiment.ExpectedOutputter.
func (Experiment) ExpectedOutput(_ Data, in Input) (Pair, bool) {
	return in.Pair, true
}

// ValidateOutput implements experiment.OutputValidator.
func (Experiment) ValidateOutput(_ Data, in Input, out Pair) error {
	if !out.Found {
		return errors.New("no pair found")
	}
	if out.I == out.J {
		return fmt.Errorf("positions must differ, got %d twice", out.I)
	}
	n := len(in.Array)
	if out.I < 0 || out.I >= n || out.J < 0 || out.J >= n {
		return fmt.Errorf("positions (%d, %d) out of range [0, %d)", out.I, out.J, n)
	}
	if sum := in.Array[out.I] + in.Array[out.J]; sum != Target {
		return fmt.Errorf("%w: a[%d] + a[%d] = %d", ErrWrongSum, out.I, out.J, sum)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Stores
// -----------------------------------------------------------------------------

type store interface {
	indexOf(v int64) (int, bool)
}

func solve(array []int64, target int64, s store) Pair {
	for i, a := range array {
		if j, ok := s.indexOf(target - a); ok && j != i {
			return Pair{I: i, J: j, Found: true}
		}
	}
	return Pair{}
}

type scanStore []int64

func (s scanStore) indexOf(v int64) (int, bool) {
	j := slices.Index(s, v)
	return j, j >= 0
}

type entry struct {
	value int64
	index int
}

type sortedVec []entry

func newSortedVec(array []int64) sortedVec {
	s := make(sortedVec, len(array))
	for i, v := range array {
		s[i] = entry{value: v, index: i}
	}
	slices.SortFunc(s, func(a, b entry) int {
		if c := cmp.Compare(a.value, b.value); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})
	return s
}

func (s sortedVec) indexOf(v int64) (int, bool) {
	k, ok := slices.BinarySearchFunc(s, v, func(e entry, v int64) int {
		return cmp.Compare(e.value, v)
	})
	if !ok {
		return 0, false
	}
	return s[k].index, true
}

type hashStore map[int64]int

func newHashStore(array []int64) hashStore {
	h := make(hashStore, len(array))
	for i, v := range array {
		h[v] = i
	}
	return h
}

func (h hashStore) indexOf(v int64) (int, bool) {
	j, ok := h[v]
	return j, ok
}

// sortedMap keeps unique keys sorted with their last index, as an
// ordered map would.
type sortedMap struct {
	keys    []int64
	indices []int
}

func newSortedMap(array []int64) *sortedMap {
	last := make(map[int64]int, len(array))
	for i, v := range array {
		last[v] = i
	}
	m := &sortedMap{keys: make([]int64, 0, len(last))}
	for k := range last {
		m.keys = append(m.keys, k)
	}
	slices.Sort(m.keys)
	m.indices = make([]int, len(m.keys))
	for k, key := range m.keys {
		m.indices[k] = last[key]
	}
	return m
}

func (m *sortedMap) indexOf(v int64) (int, bool) {
	k, ok := slices.BinarySearch(m.keys, v)
	if !ok {
		return 0, false
	}
	return m.indices[k], true
}
