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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyCSV indicates a summary CSV without a header row.
var ErrEmptyCSV = errors.New("summary csv has no header")

// WriteCSV writes the header and one record per treatment.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.Rows() {
		if err := cw.Write(r.Record(row)); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.T(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Table is a summary CSV read back from disk.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ReadCSV parses a summary CSV.
func ReadCSV(rd io.Reader) (*Table, error) {
	records, err := csv.NewReader(rd).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read summary csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCSV
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Column returns the index of a header name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
