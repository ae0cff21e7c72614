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
	"os"
	"path/filepath"
)

// ArtifactError reports a report artifact that could not be written.
type ArtifactError struct {
	// Path is the artifact that failed.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *ArtifactError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Artifacts lists the files written for a report.
type Artifacts struct {
	CSV      string `json:"csv"`
	Prompt   string `json:"prompt"`
	Benchfmt string `json:"benchfmt"`
}

// Paths returns the artifact paths in write order.
func (a Artifacts) Paths() []string {
	return []string{a.CSV, a.Prompt, a.Benchfmt}
}

// WriteArtifacts writes the CSV, the prompt and the benchmark format
// results under {Root}/{bench}.
//
// Description:
//
//	Files are written in that order. The first failure stops the writing
//	and is returned as an *ArtifactError naming the file.
//
// Outputs:
//
//	Artifacts - Paths of the written files.
//	error     - *ArtifactError on failure.
func (r *Report) WriteArtifacts() (Artifacts, error) {
	a := Artifacts{
		CSV:      CSVPath(r.Root, r.Grid.Bench),
		Prompt:   PromptPath(r.Root, r.Grid.Bench),
		Benchfmt: BenchfmtPath(r.Root, r.Grid.Bench),
	}

	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{a.CSV, r.WriteCSV},
		{a.Prompt, r.WritePrompt},
		{a.Benchfmt, r.WriteBenchfmt},
	}
	for _, w := range writers {
		if err := writeFile(w.path, w.write); err != nil {
			return a, &ArtifactError{Path: w.path, Err: err}
		}
	}
	return a, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
