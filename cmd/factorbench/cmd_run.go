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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/services/factorial/experiment"
	"github.com/AleutianAI/factorbench/services/factorial/regression"
)

// ErrRegression is returned when a run regressed against its baseline.
var ErrRegression = errors.New("performance regression detected")

func newRunCmd(a *app) *cobra.Command {
	var compare bool

	cmd := &cobra.Command{
		Use:   "run [experiment...]",
		Short: "Benchmark every treatment of the named experiments (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			entries, err := a.registry.Resolve(args...)
			if err != nil {
				return err
			}

			sink, err := a.sink()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := sink.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("close sinks: %w", cerr)
				}
			}()

			runner, err := a.runner(sink)
			if err != nil {
				return err
			}

			var gate *regression.Gate
			if compare {
				g, closeStore, err := a.gate()
				if err != nil {
					return err
				}
				defer closeStore()
				gate = g
			}

			regressed := false
			for _, e := range entries {
				a.printer.Title(e.Name())
				run, err := e.Run(cmd.Context(), runner)
				if err != nil {
					return fmt.Errorf("%s: %w", e.Name(), err)
				}
				a.printRun(run)

				if gate == nil {
					continue
				}
				ok, err := a.checkGate(cmd, gate, regression.FromReport(run.ID, run.Report))
				if err != nil {
					return err
				}
				regressed = regressed || !ok
			}

			if regressed {
				return ErrRegression
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compare, "compare", false, "check each run against its stored baseline")
	return cmd
}

func (a *app) printRun(run *experiment.Run) {
	fmt.Fprintln(a.printer.Writer(), run.Report.Render(a.printer.Mode()))
	a.printer.KeyValue("run", run.ID)
	a.printer.KeyValue("duration", run.Duration.Round(time.Millisecond).String())
	if run.Artifacts.CSV != "" {
		a.printer.KeyValue("summary", run.Artifacts.CSV)
	}
}
