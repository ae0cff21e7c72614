// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"math"
	"sort"
	"time"

	"github.com/AleutianAI/factorbench/services/factorial/estimate"
)

// sample is one timed batch of iterations.
type sample struct {
	iters   int64
	elapsed time.Duration
}

// perIter returns the sample's time per iteration in nanoseconds.
func (s sample) perIter() float64 {
	return float64(s.elapsed.Nanoseconds()) / float64(s.iters)
}

// Stats summarizes the samples of one treatment. All values are
// nanoseconds per iteration.
type Stats struct {
	Samples  int
	Mean     float64
	MeanErr  float64
	Median   float64
	StdDev   float64
	Slope    float64
	SlopeErr float64
	HasSlope bool
}

// computeStats derives per-iteration statistics from samples.
//
// The slope is the least-squares fit of elapsed time against iteration
// count through the origin. It is only meaningful when the iteration
// counts differ between samples, so it is computed for linear sampling only.
func computeStats(samples []sample, linear bool) Stats {
	st := Stats{Samples: len(samples)}
	if len(samples) == 0 {
		return st
	}

	per := make([]float64, len(samples))
	var sum float64
	for i, s := range samples {
		per[i] = s.perIter()
		sum += per[i]
	}
	n := float64(len(per))
	st.Mean = sum / n

	if len(per) > 1 {
		var sq float64
		for _, v := range per {
			d := v - st.Mean
			sq += d * d
		}
		st.StdDev = math.Sqrt(sq / (n - 1))
		st.MeanErr = st.StdDev / math.Sqrt(n)
	}

	sorted := append([]float64(nil), per...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		st.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		st.Median = sorted[mid]
	}

	if linear {
		st.Slope, st.SlopeErr = fitThroughOrigin(samples)
		st.HasSlope = true
	}
	return st
}

// fitThroughOrigin returns the slope of elapsed ~ iters and its standard
// error.
func fitThroughOrigin(samples []sample) (float64, float64) {
	var xy, xx float64
	for _, s := range samples {
		x := float64(s.iters)
		y := float64(s.elapsed.Nanoseconds())
		xy += x * y
		xx += x * x
	}
	if xx == 0 {
		return 0, 0
	}
	slope := xy / xx

	if len(samples) < 2 {
		return slope, 0
	}
	var rss float64
	for _, s := range samples {
		r := float64(s.elapsed.Nanoseconds()) - slope*float64(s.iters)
		rss += r * r
	}
	variance := rss / float64(len(samples)-1)
	return slope, math.Sqrt(variance / xx)
}

// File converts the statistics to the statistics file schema.
func (st Stats) File() *estimate.File {
	f := &estimate.File{
		Mean:   estimate.Point(st.Mean, st.MeanErr),
		Median: estimate.Point(st.Median, 0),
		StdDev: estimate.Point(st.StdDev, 0),
	}
	if st.HasSlope {
		f.Slope = estimate.Point(st.Slope, st.SlopeErr)
	}
	return f
}
