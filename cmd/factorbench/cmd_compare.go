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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/services/factorial/regression"
	"github.com/AleutianAI/factorbench/services/factorial/summary"
)

func newCompareCmd(a *app) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "compare <experiment>",
		Short: "Compare the stored statistics of an experiment against its baseline",
		Long: `Compare summarizes the statistics already on disk, records them in the
run history and compares them with the bench baseline. The first comparison
of a bench creates the baseline. The command fails when any treatment is
slower than the baseline by more than the configured threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.registry.Get(args[0])
			if err != nil {
				return err
			}
			report, err := summary.Build(cmd.Context(), a.cfg.ArtifactRoot, e.Grid())
			if err != nil {
				return err
			}

			gate, closeStore, err := a.gate()
			if err != nil {
				return err
			}
			defer closeStore()

			ok, err := a.checkGate(cmd, gate, regression.FromReport(runID, report))
			if err != nil {
				return err
			}
			if !ok {
				return ErrRegression
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "identifier of the recorded run (random when empty)")
	return cmd
}

// checkGate records snap and prints the verdict. It reports whether the
// snapshot passed.
func (a *app) checkGate(cmd *cobra.Command, gate *regression.Gate, snap *regression.Snapshot) (bool, error) {
	verdict, err := gate.Check(cmd.Context(), snap)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", snap.Bench, err)
	}

	switch {
	case verdict.BaselineCreated:
		a.printer.Info(fmt.Sprintf("%s: baseline created from run %s", snap.Bench, snap.ID))
		return true, nil
	case verdict.Comparison != nil:
		a.printer.PrintTable(verdict.Comparison.Table())
	}

	if !verdict.Passed {
		n := len(verdict.Comparison.Filter(regression.StatusRegressed))
		a.printer.Error(fmt.Sprintf("%s: %d treatment(s) regressed beyond %.0f%%",
			snap.Bench, n, verdict.Comparison.Threshold*100))
		return false, nil
	}
	if verdict.BaselineUpdated {
		a.printer.Success(fmt.Sprintf("%s: passed, baseline updated", snap.Bench))
	} else {
		a.printer.Success(fmt.Sprintf("%s: passed", snap.Bench))
	}
	return true, nil
}
