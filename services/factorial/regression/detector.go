// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package regression

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/AleutianAI/factorbench/pkg/ux"
)

// DefaultThreshold is the relative change that counts as a regression or
// an improvement.
const DefaultThreshold = 0.10

// Status classifies one treatment of a comparison.
type Status int

const (
	// StatusUnchanged means the change is within the threshold.
	StatusUnchanged Status = iota

	// StatusRegressed means the current estimate is slower than the
	// baseline by more than the threshold.
	StatusRegressed

	// StatusImproved means the current estimate is faster than the
	// baseline by more than the threshold.
	StatusImproved

	// StatusNew means the treatment has no baseline estimate.
	StatusNew

	// StatusMissing means the treatment has a baseline estimate but no
	// current one.
	StatusMissing
)

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusRegressed:
		return "regressed"
	case StatusImproved:
		return "improved"
	case StatusNew:
		return "new"
	case StatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Change is the comparison of one treatment.
type Change struct {
	Key      string
	Baseline float64
	Current  float64

	// Delta is (Current-Baseline)/Baseline. Zero unless both estimates
	// exist and Baseline is positive.
	Delta float64

	Status Status
}

// Comparison is the result of Detector.Compare.
type Comparison struct {
	Bench      string
	BaselineID string
	CurrentID  string
	Threshold  float64

	// Changes are sorted by key.
	Changes []Change
}

// Detector compares runs against a baseline.
type Detector struct {
	threshold float64
}

// NewDetector creates a detector. The threshold must be positive.
func NewDetector(threshold float64) (*Detector, error) {
	if threshold <= 0 {
		return nil, errors.New("threshold must be positive")
	}
	return &Detector{threshold: threshold}, nil
}

// Threshold returns the detector threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Compare classifies every treatment present in either snapshot.
func (d *Detector) Compare(baseline, current *Snapshot) *Comparison {
	c := &Comparison{
		Bench:      current.Bench,
		BaselineID: baseline.ID,
		CurrentID:  current.ID,
		Threshold:  d.threshold,
	}

	keys := make(map[string]struct{}, len(current.Estimates))
	for k := range baseline.Estimates {
		keys[k] = struct{}{}
	}
	for k := range current.Estimates {
		keys[k] = struct{}{}
	}

	for k := range keys {
		b, hasBase := baseline.Estimates[k]
		cur, hasCur := current.Estimates[k]
		ch := Change{Key: k, Baseline: b, Current: cur}
		switch {
		case !hasBase:
			ch.Status = StatusNew
		case !hasCur:
			ch.Status = StatusMissing
		default:
			ch.Status, ch.Delta = d.classify(b, cur)
		}
		c.Changes = append(c.Changes, ch)
	}
	sort.Slice(c.Changes, func(i, j int) bool { return c.Changes[i].Key < c.Changes[j].Key })
	return c
}

func (d *Detector) classify(base, cur float64) (Status, float64) {
	if base <= 0 {
		if cur > base {
			return StatusRegressed, 0
		}
		return StatusUnchanged, 0
	}
	delta := (cur - base) / base
	switch {
	case delta > d.threshold:
		return StatusRegressed, delta
	case delta < -d.threshold:
		return StatusImproved, delta
	default:
		return StatusUnchanged, delta
	}
}

// Filter returns the changes with the given status.
func (c *Comparison) Filter(s Status) []Change {
	var out []Change
	for _, ch := range c.Changes {
		if ch.Status == s {
			out = append(out, ch)
		}
	}
	return out
}

// HasRegressions reports whether any treatment regressed.
func (c *Comparison) HasRegressions() bool {
	return len(c.Filter(StatusRegressed)) > 0
}

// Counts returns the number of changes per status.
func (c *Comparison) Counts() map[Status]int {
	out := make(map[Status]int, 5)
	for _, ch := range c.Changes {
		out[ch.Status]++
	}
	return out
}

var statusTones = map[Status]ux.Tone{
	StatusUnchanged: ux.ToneNone,
	StatusRegressed: ux.ToneBad,
	StatusImproved:  ux.ToneGood,
	StatusNew:       ux.ToneMuted,
	StatusMissing:   ux.ToneMuted,
}

// Table returns the comparison as a table toned by status.
func (c *Comparison) Table() ux.Table {
	t := ux.Table{Headers: []string{"Treatment", "Baseline (ns)", "Current (ns)", "Change", "Status"}}
	for _, ch := range c.Changes {
		base, cur, delta := "NA", "NA", ""
		if ch.Status != StatusNew {
			base = strconv.FormatFloat(ch.Baseline, 'f', 0, 64)
		}
		if ch.Status != StatusMissing {
			cur = strconv.FormatFloat(ch.Current, 'f', 0, 64)
		}
		if ch.Status != StatusNew && ch.Status != StatusMissing {
			delta = fmt.Sprintf("%+.1f%%", ch.Delta*100)
		}
		t.Rows = append(t.Rows, []string{ch.Key, base, cur, delta, ch.Status.String()})
		t.Tones = append(t.Tones, statusTones[ch.Status])
	}
	return t
}
