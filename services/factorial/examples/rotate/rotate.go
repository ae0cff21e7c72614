// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rotate is a small experiment that rotates a slice left one
// position at a time by adjacent swaps.
package rotate

import (
	"strconv"
)

// Name is the bench name.
const Name = "rotate"

// Width is the input level: the slice 0..Width-1.
type Width struct {
	Width int
}

func (Width) FactorNames() []string      { return []string{"width"} }
func (Width) ShortFactorNames() []string { return []string{"w"} }

func (w Width) FactorValues() []string { return []string{strconv.Itoa(w.Width)} }

// Variant is the algorithm level. With Sort set the slice is rotated Len
// times; otherwise it is copied unchanged.
type Variant struct {
	Len  int
	Sort bool
}

func (Variant) FactorNames() []string      { return []string{"len", "sort"} }
func (Variant) ShortFactorNames() []string { return []string{"l", "s"} }

func (v Variant) FactorValues() []string {
	return []string{strconv.Itoa(v.Len), strconv.FormatBool(v.Sort)}
}

func (v Variant) ShortFactorValues() []string {
	s := "F"
	if v.Sort {
		s = "T"
	}
	return []string{strconv.Itoa(v.Len), s}
}

// DefaultWidths returns widths 2 and 5.
func DefaultWidths() []Width {
	return []Width{{Width: 2}, {Width: 5}}
}

// DefaultVariants returns 1001 rotations with and without Sort.
func DefaultVariants() []Variant {
	return []Variant{{Len: 1001, Sort: false}, {Len: 1001, Sort: true}}
}

// Experiment is the rotate experiment.
type Experiment struct{}

// BuildInput returns 0..w.Width-1.
func (Experiment) BuildInput(w Width) []int {
	out := make([]int, w.Width)
	for i := range out {
		out[i] = i
	}
	return out
}

// Execute copies input and, with v.Sort, bubbles the first element to the
// end v.Len times.
func (Experiment) Execute(v Variant, input []int) []int {
	out := append([]int(nil), input...)
	if !v.Sort {
		return out
	}
	for range v.Len {
		for i := 1; i < len(out); i++ {
			out[i], out[i-1] = out[i-1], out[i]
		}
	}
	return out
}

// Rotated returns input rotated left by k positions.
func Rotated(input []int, k int) []int {
	n := len(input)
	out := make([]int, n)
	if n == 0 {
		return out
	}
	k %= n
	copy(out, input[k:])
	copy(out[n-k:], input[:k])
	return out
}
