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
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tone colors one table row.
type Tone int

const (
	ToneNone Tone = iota
	ToneGood
	ToneBad
	ToneMuted
)

var toneStyles = map[Tone]lipgloss.Style{
	ToneNone:  lipgloss.NewStyle(),
	ToneGood:  lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
	ToneBad:   lipgloss.NewStyle().Foreground(ColorError),
	ToneMuted: lipgloss.NewStyle().Foreground(ColorMuted),
}

// Table is a rectangular table with one tone per row.
type Table struct {
	Headers []string
	Rows    [][]string
	Tones   []Tone
}

// RenderTable renders t with lipgloss.
//
// Styled mode draws a rounded teal border, a bold header and colors each
// row by its tone. Plain mode draws an ASCII border with no colors.
func RenderTable(t Table, mode Mode) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(mode == ModeStyled)

	tbl := table.New().
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if mode == ModeStyled {
					return header.Foreground(ColorTealPrimary)
				}
				return header
			}
			if mode == ModePlain || row < 0 || row >= len(t.Tones) {
				return cell
			}
			return cell.Inherit(toneStyles[t.Tones[row]])
		})

	if mode == ModePlain {
		tbl = tbl.Border(lipgloss.ASCIIBorder())
	} else {
		tbl = tbl.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(ColorTealDeep))
	}
	return tbl.Render()
}

// PrintTable writes the rendered table followed by a newline.
func (p *Printer) PrintTable(t Table) {
	fmt.Fprintln(p.w, RenderTable(t, p.mode))
}
