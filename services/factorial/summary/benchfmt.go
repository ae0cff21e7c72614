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
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/perf/benchfmt"
)

// WriteBenchfmt writes the valid estimates in the Go benchmark format, one
// result per treatment named after BenchmarkName, so runs can be compared
// with benchstat. Treatments without an estimate are skipped.
func (r *Report) WriteBenchfmt(w io.Writer) error {
	bw := benchfmt.NewWriter(w)
	config := []benchfmt.Config{
		{Key: "factorbench", Value: []byte(r.Grid.Bench), File: true},
		{Key: "inputs", Value: []byte(fmt.Sprint(r.Grid.NumInputs)), File: true},
		{Key: "algorithms", Value: []byte(fmt.Sprint(r.Grid.NumAlgs)), File: true},
	}

	for _, row := range r.Rows() {
		if !row.Estimate.Valid {
			continue
		}
		res := &benchfmt.Result{
			Config: config,
			Name:   benchfmt.Name(BenchmarkName(r.Grid.Bench, row.LongKey)),
			Iters:  1,
			Values: []benchfmt.Value{{Value: row.Estimate.Ns, Unit: "ns/op"}},
		}
		if err := bw.Write(res); err != nil {
			return fmt.Errorf("write result %s: %w", row.LongKey, err)
		}
	}
	return nil
}

// BenchmarkName returns the Go benchmark name of a treatment: the bench
// name with an upper-case first letter, "/", and the long key. Whitespace
// is replaced with "_" because the format separates fields by whitespace.
func BenchmarkName(bench, longKey string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, bench+"/"+longKey)

	first, size := utf8.DecodeRuneInString(name)
	if first == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(first)) + name[size:]
}
