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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow} {
		assert.Contains(t, icon.Render(), string(icon))
	}
	assert.Equal(t, "→", IconArrow.Render())
}

// =============================================================================
// Plain Mode Tests
// =============================================================================

func TestPrinter_Plain(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{"title", func(p *Printer) { p.Title("two_sum") }, "# two_sum\n"},
		{"success", func(p *Printer) { p.Success("done") }, "OK: done\n"},
		{"warning", func(p *Printer) { p.Warning("slow") }, "WARN: slow\n"},
		{"error", func(p *Printer) { p.Error("failed") }, "ERROR: failed\n"},
		{"info", func(p *Printer) { p.Info("watching") }, "watching\n"},
		{"key value", func(p *Printer) { p.KeyValue("run", "abc") }, "run: abc\n"},
		{"box", func(p *Printer) { p.Box("Summary", "4 treatments") }, "Summary: 4 treatments\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(NewPrinter(&buf, ModePlain))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// =============================================================================
// Styled Mode Tests
// =============================================================================

func TestPrinter_StyledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeStyled)
	p.Title("search")
	p.Success("passed")
	p.Error("regressed")
	p.KeyValue("summary", "summary_search.csv")
	p.Box("Run", "ok")

	out := buf.String()
	for _, want := range []string{"search", "passed", "regressed", "summary:", "summary_search.csv", "Run", "ok"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "ERROR:")
	assert.True(t, strings.Contains(out, string(IconSuccess)))
}

// =============================================================================
// Mode Detection Tests
// =============================================================================

func TestDetectMode_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, ModePlain, DetectMode(f))
}

func TestPrinter_Accessors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeStyled)
	assert.Equal(t, ModeStyled, p.Mode())
	assert.Same(t, &buf, p.Writer())

	assert.Equal(t, ModePlain, Stdout(true).Mode())
}
