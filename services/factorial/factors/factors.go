// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package factors describes the levels of a factorial experiment.
//
// A level is an ordered list of (name, value) pairs. Both problem inputs and
// algorithm variants are described the same way, through the Levels
// interface, and both derive their identifying keys with the same rules:
//
//	name1:value1_name2:value2_..._nameN:valueN
//
// Every level has a long form and a short form. The short form defaults to
// the long form; types opt into shorter names or values by implementing
// ShortNamer or ShortValuer.
package factors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PairSeparator joins a factor name to its value.
	PairSeparator = ":"

	// FactorSeparator joins consecutive name:value pairs.
	FactorSeparator = "_"
)

// ErrShapeMismatch indicates that a level's names and values differ in length.
var ErrShapeMismatch = errors.New("factor names and values differ in length")

// Levels describes one level of a set of factors.
//
// FactorNames must return the same names for every value of the
// implementing type, including its zero value. The names are a property of
// the type; only the values vary from level to level.
type Levels interface {
	// FactorNames returns the ordered factor names.
	FactorNames() []string

	// FactorValues returns the ordered values of this level, one per name.
	FactorValues() []string
}

// ShortNamer is implemented by levels with abbreviated factor names.
type ShortNamer interface {
	ShortFactorNames() []string
}

// ShortValuer is implemented by levels with abbreviated factor values.
type ShortValuer interface {
	ShortFactorValues() []string
}

// Form selects the long or short representation of a level.
type Form int

const (
	// Long uses FactorNames and FactorValues.
	Long Form = iota

	// Short uses ShortFactorNames and ShortFactorValues where implemented,
	// falling back to the long forms.
	Short
)

// String returns "long" or "short".
func (f Form) String() string {
	if f == Short {
		return "short"
	}
	return "long"
}

// Names returns the factor names of a level in the requested form.
func Names(l Levels, f Form) []string {
	if f == Short {
		if s, ok := l.(ShortNamer); ok {
			return s.ShortFactorNames()
		}
	}
	return l.FactorNames()
}

// Values returns the factor values of a level in the requested form.
func Values(l Levels, f Form) []string {
	if f == Short {
		if s, ok := l.(ShortValuer); ok {
			return s.ShortFactorValues()
		}
	}
	return l.FactorValues()
}

// Join builds a key from parallel name and value lists.
//
// Description:
//
//	Each name is joined to its value with ":" and the pairs are joined
//	with "_", in order. Zero pairs yield the empty string. Names and values
//	are expected to have equal length; extra entries on either side are
//	ignored.
//
// Inputs:
//
//	names  - Ordered factor names.
//	values - Ordered factor values.
//
// Outputs:
//
//	string - The key, for example "len:1001_sort:true".
func Join(names, values []string) string {
	n := min(len(names), len(values))
	if n == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(FactorSeparator)
		}
		b.WriteString(names[i])
		b.WriteString(PairSeparator)
		b.WriteString(values[i])
	}
	return b.String()
}

// Key returns the key of a level in the requested form.
func Key(l Levels, f Form) string {
	return Join(Names(l, f), Values(l, f))
}

// LongKey returns the key built from long names and long values.
func LongKey(l Levels) string {
	return Key(l, Long)
}

// ShortKey returns the key built from short names and short values.
func ShortKey(l Levels) string {
	return Key(l, Short)
}

// Header returns the long factor names of a level type.
//
// The names come from the first level when there is one and from the zero
// value of L otherwise, so a header exists even for an empty level list.
// Nil is returned when levels is empty and the zero value cannot report
// names: L is an interface type, or a pointer type whose FactorNames
// dereferences its nil receiver.
func Header[L Levels](levels []L) []string {
	if len(levels) > 0 {
		return levels[0].FactorNames()
	}
	var zero L
	if any(zero) == nil {
		return nil
	}
	return zeroNames(zero)
}

func zeroNames(zero Levels) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	return zero.FactorNames()
}

// CheckShape verifies that the long and short names and values of a level
// all have the same length.
func CheckShape(l Levels) error {
	names := len(l.FactorNames())
	lengths := map[string]int{
		"values":       len(l.FactorValues()),
		"short names":  len(Names(l, Short)),
		"short values": len(Values(l, Short)),
	}
	for what, n := range lengths {
		if n != names {
			return fmt.Errorf("%w: %d names, %d %s", ErrShapeMismatch, names, n, what)
		}
	}
	return nil
}

// DuplicateKeys returns every key in the requested form that is shared by
// more than one level, in order of first repetition.
func DuplicateKeys[L Levels](levels []L, f Form) []string {
	seen := make(map[string]int, len(levels))
	var dups []string
	for _, l := range levels {
		k := Key(l, f)
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// -----------------------------------------------------------------------------
// Static levels
// -----------------------------------------------------------------------------

// Pair is one factor of a Static level.
type Pair struct {
	Name       string `yaml:"name" json:"name"`
	Value      string `yaml:"value" json:"value"`
	ShortName  string `yaml:"short_name,omitempty" json:"short_name,omitempty"`
	ShortValue string `yaml:"short_value,omitempty" json:"short_value,omitempty"`
}

// Static is a Levels value built from explicit pairs. Empty short forms
// fall back to the long forms.
//
// Static is used where levels come from data rather than from a Go type,
// such as configuration files and re-summarizing runs from disk.
type Static []Pair

// NewStatic builds a Static level from alternating names and values.
//
// Example:
//
//	factors.NewStatic("len", "1024", "sort", "true")
func NewStatic(namesAndValues ...string) Static {
	s := make(Static, 0, len(namesAndValues)/2)
	for i := 0; i+1 < len(namesAndValues); i += 2 {
		s = append(s, Pair{Name: namesAndValues[i], Value: namesAndValues[i+1]})
	}
	return s
}

// FactorNames implements Levels.
func (s Static) FactorNames() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name
	}
	return out
}

// FactorValues implements Levels.
func (s Static) FactorValues() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// ShortFactorNames implements ShortNamer.
func (s Static) ShortFactorNames() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = orDefault(p.ShortName, p.Name)
	}
	return out
}

// ShortFactorValues implements ShortValuer.
func (s Static) ShortFactorValues() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = orDefault(p.ShortValue, p.Value)
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var (
	_ Levels      = Static(nil)
	_ ShortNamer  = Static(nil)
	_ ShortValuer = Static(nil)
)
