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
	"github.com/AleutianAI/factorbench/pkg/ux"
)

var rankTones = map[Rank]ux.Tone{
	RankBest:         ux.ToneGood,
	RankWorst:        ux.ToneBad,
	RankIntermediate: ux.ToneNone,
	RankMissing:      ux.ToneMuted,
}

// Table returns the ranked table: the CSV columns plus a "Rank" column,
// with each row toned by its rank.
func (r *Report) Table() ux.Table {
	t := ux.Table{Headers: append(r.Header(), "Rank")}
	for _, row := range r.Rows() {
		t.Rows = append(t.Rows, append(r.Record(row), row.Rank.String()))
		t.Tones = append(t.Tones, rankTones[row.Rank])
	}
	return t
}

// Render returns the ranked table rendered in the given mode.
func (r *Report) Render(mode ux.Mode) string {
	return ux.RenderTable(r.Table(), mode)
}
