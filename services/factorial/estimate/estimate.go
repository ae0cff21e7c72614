// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package estimate locates and reads the per-treatment statistics files
// written by a timing harness.
//
// A statistics file lives at
//
//	{root}/{bench}/{sanitized short key}/new/estimates.json
//
// and is opaque except for two fields: "slope" and "mean", each an object
// carrying a numeric "point_estimate" in nanoseconds. Slope is preferred;
// when it is null the mean is used. A missing or malformed file never
// fails a run. It simply yields no estimate.
package estimate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FileName is the name of the statistics file.
	FileName = "estimates.json"

	// NewDir is the directory holding the statistics of the latest run.
	NewDir = "new"
)

// ErrNoEstimate indicates that a statistics file held neither a usable
// slope nor a usable mean.
var ErrNoEstimate = errors.New("no point estimate")

var sanitizer = strings.NewReplacer("/", "_", ":", "_")

// Sanitize converts a treatment key into a directory name by replacing
// every "/" and ":" with "_".
func Sanitize(key string) string {
	return sanitizer.Replace(key)
}

// Dir returns the directory holding a treatment's latest statistics.
func Dir(root, bench, shortKey string) string {
	return filepath.Join(root, bench, Sanitize(shortKey), NewDir)
}

// Path returns the statistics file path of a treatment.
//
// Example:
//
//	estimate.Path("target/factorbench", "sort", "w:2/l:1001_s:F")
//	// target/factorbench/sort/w_2_l_1001_s_F/new/estimates.json
func Path(root, bench, shortKey string) string {
	return filepath.Join(Dir(root, bench, shortKey), FileName)
}

// -----------------------------------------------------------------------------
// File schema
// -----------------------------------------------------------------------------

// Estimate is one statistic of a statistics file.
type Estimate struct {
	PointEstimate *float64 `json:"point_estimate"`
	StandardError *float64 `json:"standard_error,omitempty"`
}

// File is the statistics file schema. Unknown fields are ignored on read.
// A nil Slope is written as JSON null.
type File struct {
	Mean   *Estimate `json:"mean"`
	Median *Estimate `json:"median,omitempty"`
	StdDev *Estimate `json:"std_dev,omitempty"`
	Slope  *Estimate `json:"slope"`
}

// Point builds an Estimate from a point estimate and its standard error.
func Point(value, stdErr float64) *Estimate {
	return &Estimate{PointEstimate: &value, StandardError: &stdErr}
}

// Value returns the preferred point estimate of a parsed file.
//
// Description:
//
//	Returns the slope point estimate when the slope is present and the
//	mean point estimate when the slope is null or absent. A selected
//	statistic without a numeric point estimate yields ErrNoEstimate; the
//	mean is not consulted when a slope object exists.
//
// Outputs:
//
//	float64 - Estimate in nanoseconds.
//	error   - ErrNoEstimate if the selected statistic is unusable.
func (f *File) Value() (float64, error) {
	selected := f.Slope
	if selected == nil {
		selected = f.Mean
	}
	if selected == nil || selected.PointEstimate == nil {
		return 0, ErrNoEstimate
	}
	return *selected.PointEstimate, nil
}

// Parse decodes a statistics file and returns its preferred point estimate.
func Parse(data []byte) (float64, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parse statistics: %w", err)
	}
	return f.Value()
}

// Read returns the point estimate stored at path.
//
// Description:
//
//	Any failure (missing file, unreadable file, malformed JSON, or a
//	missing point estimate) is reported as ok == false. Callers that need
//	the reason use ReadFile.
//
// Inputs:
//
//	path - Statistics file path, usually from Path.
//
// Outputs:
//
//	float64 - Estimate in nanoseconds when ok.
//	bool    - Whether an estimate was found.
func Read(path string) (float64, bool) {
	v, err := ReadFile(path)
	return v, err == nil
}

// ReadFile is Read with the failure reason.
func ReadFile(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return Parse(data)
}

// Extract reads the estimate of one treatment under the path convention.
func Extract(root, bench, shortKey string) (float64, bool) {
	return Read(Path(root, bench, shortKey))
}

// Write stores a statistics file at path, creating parent directories.
func Write(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create statistics directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write statistics %s: %w", path, err)
	}
	return nil
}
