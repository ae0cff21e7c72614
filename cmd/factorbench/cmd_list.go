// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/pkg/ux"
	"github.com/AleutianAI/factorbench/services/factorial/examples"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.registry.Resolve()
			if err != nil {
				return err
			}
			a.printer.PrintTable(experimentTable(entries))
			return nil
		},
	}
}

func experimentTable(entries []examples.Entry) ux.Table {
	t := ux.Table{Headers: []string{"experiment", "inputs", "algorithms", "treatments", "description"}}
	for _, e := range entries {
		g := e.Grid()
		t.Rows = append(t.Rows, []string{
			e.Name(),
			strconv.Itoa(g.NumInputs),
			strconv.Itoa(g.NumAlgs),
			strconv.Itoa(g.Len()),
			e.Description(),
		})
	}
	return t
}
