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
	"io"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`# Factorial analysis of {{.Bench}}

The benchmark **{{.Bench}}** ran a full factorial experiment with
{{.NumInputs}} input levels and {{.NumAlgs}} algorithm levels, for a total of
{{.NumTreatments}} treatments. Every algorithm level ran against every input
level, and each treatment was timed independently.

## Factors

- Input factors ({{len .InputNames}}): {{if .InputNames}}{{join .InputNames ", "}}{{else}}none{{end}}
- Algorithm factors ({{len .AlgNames}}): {{if .AlgNames}}{{join .AlgNames ", "}}{{else}}none{{end}}

## Data

The results are in the CSV file ` + "`{{.CSVPath}}`" + `. Its columns are:

- ` + "`t`" + `: treatment index, 1 to {{.NumTreatments}}
- ` + "`i`" + `: input level index, 1 to {{.NumInputs}}
- ` + "`a`" + `: algorithm level index, 1 to {{.NumAlgs}}
{{- range .InputNames}}
- ` + "`{{.}}`" + `: input factor
{{- end}}
{{- range .AlgNames}}
- ` + "`{{.}}`" + `: algorithm factor
{{- end}}
- ` + "`Time (ns)`" + `: estimated time per execution in nanoseconds, or NA when
  no estimate is available

## Task

Analyze how the algorithm factors affect execution time, and whether their
effect depends on the input factors. Identify the best algorithm level for
each input level, the factors with the largest effect, any interactions
between factors, and any treatments with missing results.
`))

type promptData struct {
	Bench         string
	NumInputs     int
	NumAlgs       int
	NumTreatments int
	InputNames    []string
	AlgNames      []string
	CSVPath       string
}

// WritePrompt writes the markdown analysis prompt describing the
// experiment's shape and the CSV location.
func (r *Report) WritePrompt(w io.Writer) error {
	return promptTemplate.Execute(w, promptData{
		Bench:         r.Grid.Bench,
		NumInputs:     r.Grid.NumInputs,
		NumAlgs:       r.Grid.NumAlgs,
		NumTreatments: r.Grid.Len(),
		InputNames:    r.Grid.InputNames,
		AlgNames:      r.Grid.AlgNames,
		CSVPath:       CSVPath(r.Root, r.Grid.Bench),
	})
}

// Prompt returns the analysis prompt as a string.
func (r *Report) Prompt() string {
	var b strings.Builder
	if err := r.WritePrompt(&b); err != nil {
		return ""
	}
	return b.String()
}
