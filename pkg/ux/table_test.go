// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rankTable() Table {
	return Table{
		Headers: []string{"t", "len", "store-type", "ns", "Rank"},
		Rows: [][]string{
			{"1", "32", "None", "120", "worst"},
			{"2", "32", "HashMap", "95", "best"},
			{"3", "32", "SortedVec", "NA", "missing"},
		},
		Tones: []Tone{ToneBad, ToneGood, ToneMuted},
	}
}

func TestRenderTable_Plain(t *testing.T) {
	out := RenderTable(rankTable(), ModePlain)

	assert.Contains(t, out, "store-type")
	assert.Contains(t, out, "HashMap")
	assert.Contains(t, out, "+")
	assert.NotContains(t, out, "\x1b[", "plain mode has no escape codes")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// Top border, header, separator, three rows and bottom border.
	assert.Len(t, lines, 7)
}

func TestRenderTable_StyledKeepsCells(t *testing.T) {
	out := RenderTable(rankTable(), ModeStyled)
	for _, cell := range []string{"worst", "best", "missing", "SortedVec"} {
		assert.Contains(t, out, cell)
	}
}

func TestRenderTable_MissingTones(t *testing.T) {
	tbl := rankTable()
	tbl.Tones = nil
	assert.NotPanics(t, func() { _ = RenderTable(tbl, ModeStyled) })
}

func TestPrinter_PrintTable(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, ModePlain).PrintTable(rankTable())
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "NA")
}
